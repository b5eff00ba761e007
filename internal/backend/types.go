// SPDX-License-Identifier: MIT

package backend

import (
	"time"

	"github.com/voxhire/voxhire/internal/types"
)

// Question is one interview question as the backend serializes it.
type Question struct {
	ID   int    `json:"id"`
	Text string `json:"question"`
}

// Analysis is the backend's resume-against-position match result.
type Analysis struct {
	MatchScore int      `json:"match_score"`
	KeySkills  []string `json:"key_skills"`
	Gaps       []string `json:"gaps"`
	Assessment string   `json:"assessment"`
}

// SessionDescriptor is the immutable bundle a candidate needs to join the
// realtime session. It is minted once by create-session; reconnects reuse
// it and never request a fresh one mid-interview.
type SessionDescriptor struct {
	SessionID     string     `json:"session_id"`
	CandidateName string     `json:"candidate_name"`
	Questions     []Question `json:"questions"`
	ServerURL     string     `json:"server_url"`
	Token         string     `json:"token"`
	RoomName      string     `json:"room_name"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreateSessionRequest is the payload for create-session.
type CreateSessionRequest struct {
	CandidateName  string     `json:"candidate_name"`
	CandidateEmail string     `json:"candidate_email"`
	Position       string     `json:"position"`
	Questions      []Question `json:"questions"`
}

// SessionInfo is the backend's view of a session as returned by the
// status poll. Status is authoritative; the client only reads it.
type SessionInfo struct {
	ID             string              `json:"id"`
	CandidateName  string              `json:"candidate_name"`
	CandidateEmail string              `json:"candidate_email"`
	Position       string              `json:"position"`
	Status         types.SessionStatus `json:"status"`
	RoomName       string              `json:"room_name"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	ID            string              `json:"id"`
	CandidateName string              `json:"candidate_name"`
	Position      string              `json:"position"`
	Status        types.SessionStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
}

// UploadResult carries the text extracted from the two uploaded documents.
type UploadResult struct {
	JDFull     string `json:"jd_full"`
	ResumeFull string `json:"resume_full"`
}

// Document is one uploaded file: its filename decides the extraction
// format, Content is the raw bytes.
type Document struct {
	Filename string
	Content  []byte
}

// envelope is the common JSON wrapper on every backend response.
type envelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// failureText prefers the error field, falling back to message.
func (e envelope) failureText() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
