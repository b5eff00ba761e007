// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/voxhire/voxhire/internal/documents"
	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/rtc"
	"github.com/voxhire/voxhire/internal/session"
	"github.com/voxhire/voxhire/internal/types"
)

type createSessionRequest struct {
	CandidateName  string `json:"candidate_name"`
	CandidateEmail string `json:"candidate_email"`
	Position       string `json:"position"`
	Questions      []struct {
		ID   int    `json:"id"`
		Text string `json:"question"`
	} `json:"questions"`
}

// sessionDescriptor is the join bundle handed back by create-session. It
// mirrors what the candidate client expects field for field.
type sessionDescriptor struct {
	SessionID     string             `json:"session_id"`
	CandidateName string             `json:"candidate_name"`
	Questions     []session.Question `json:"questions"`
	ServerURL     string             `json:"server_url"`
	Token         string             `json:"token"`
	RoomName      string             `json:"room_name"`
	CreatedAt     time.Time          `json:"created_at"`
}

// handleCreateSession persists the session record and mints the realtime
// join credential. The descriptor is minted exactly once; reconnects reuse
// it.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name, err := documents.SanitizeText(req.CandidateName, documents.MaxNameLen)
	if err != nil || name == "" {
		respondError(w, r, http.StatusBadRequest, "candidate_name is required (at most 100 characters)")
		return
	}
	email, err := documents.ValidateEmail(req.CandidateEmail)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "candidate_email is not a valid address")
		return
	}
	position, err := documents.SanitizeText(req.Position, documents.MaxPositionLen)
	if err != nil || position == "" {
		respondError(w, r, http.StatusBadRequest, "position is required (at most 200 characters)")
		return
	}
	if len(req.Questions) < 1 || len(req.Questions) > maxQuestions {
		respondError(w, r, http.StatusBadRequest, "between 1 and 20 questions are required")
		return
	}

	questions := make([]session.Question, len(req.Questions))
	for i, q := range req.Questions {
		text, err := documents.SanitizeText(q.Text, documents.MaxTextLen)
		if err != nil || text == "" {
			respondError(w, r, http.StatusBadRequest, "every question needs non-empty text")
			return
		}
		id := q.ID
		if id == 0 {
			id = i + 1
		}
		questions[i] = session.Question{ID: id, Text: text}
	}

	now := s.now().UTC()
	id := uuid.NewString()
	roomName := session.RoomNameFor(id)

	token, err := s.deps.Issuer.Mint(roomName, rtc.IdentityCandidate, now)
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).
			Str("event", "api.token_mint_failed").Msg("could not mint join token")
		respondError(w, r, http.StatusInternalServerError, "could not mint join token")
		return
	}

	sess := &session.Session{
		ID:              id,
		CandidateName:   name,
		CandidateEmail:  email,
		Position:        position,
		Questions:       questions,
		Status:          types.StatusCreated,
		RoomName:        roomName,
		CreatedAt:       now,
		UpdatedAt:       now,
		StatusChangedAt: now,
	}
	if err := s.deps.Store.Put(r.Context(), sess); err != nil {
		log.FromContext(r.Context()).Error().Err(err).
			Str("event", "api.session_put_failed").Msg("could not persist session")
		respondError(w, r, http.StatusInternalServerError, "could not persist session")
		return
	}

	log.FromContext(r.Context()).Info().
		Str("session_id", id).
		Str("room", roomName).
		Str("event", "api.session_created").
		Msg("session created")

	respond(w, r, http.StatusOK, "", map[string]any{
		"data": sessionDescriptor{
			SessionID:     id,
			CandidateName: name,
			Questions:     questions,
			ServerURL:     s.deps.Config.Get().RTC.PublicURL,
			Token:         token,
			RoomName:      roomName,
			CreatedAt:     now,
		},
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, r, http.StatusInternalServerError, "could not load session")
		return
	}
	respond(w, r, http.StatusOK, "", map[string]any{"session": sess})
}

// handleUpdateSession applies a status change, enforcing the monotonic
// progression rules. Terminal states never change again.
func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status, err := types.ParseSessionStatus(req.Status)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	now := s.now().UTC()
	updated, err := s.deps.Store.Update(r.Context(), id, func(sess *session.Session) error {
		return sess.TransitionTo(status, now)
	})
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, session.ErrInvalidTransition):
		respondError(w, r, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "could not update session")
		return
	}

	log.FromContext(r.Context()).Info().
		Str("session_id", id).
		Str("status", status.String()).
		Str("event", "api.session_status_updated").
		Msg("session status updated")
	respond(w, r, http.StatusOK, "", map[string]any{"session": updated})
}

type sessionSummary struct {
	ID            string              `json:"id"`
	CandidateName string              `json:"candidate_name"`
	Position      string              `json:"position"`
	Status        types.SessionStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	all, err := s.deps.Store.List(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "could not list sessions")
		return
	}

	summaries := make([]sessionSummary, len(all))
	for i, sess := range all {
		summaries[i] = sessionSummary{
			ID:            sess.ID,
			CandidateName: sess.CandidateName,
			Position:      sess.Position,
			Status:        sess.Status,
			CreatedAt:     sess.CreatedAt,
		}
	}
	respond(w, r, http.StatusOK, "", map[string]any{"sessions": summaries})
}
