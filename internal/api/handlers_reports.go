// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/metrics"
	"github.com/voxhire/voxhire/internal/report"
	"github.com/voxhire/voxhire/internal/session"
)

// handleSendReport renders the interview report and emails it to the
// candidate. Render failure, delivery failure, and success each produce a
// distinct envelope so the caller can tell them apart.
func (s *Server) handleSendReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.loadSession(w, r, id)
	if !ok {
		return
	}

	pdf, err := report.Render(sess)
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).
			Str("session_id", id).
			Str("event", "api.report_render_failed").
			Msg("report rendering failed")
		metrics.IncReportDispatch("render_failed")
		respondError(w, r, http.StatusInternalServerError, "could not render the interview report")
		return
	}
	if _, err := s.deps.Reports.Save(id, pdf); err != nil {
		log.FromContext(r.Context()).Warn().Err(err).
			Str("session_id", id).
			Str("event", "api.report_save_failed").
			Msg("report not archived")
	}

	if !s.deps.Mailer.Configured() {
		metrics.IncReportDispatch("unconfigured")
		respondError(w, r, http.StatusServiceUnavailable, "email delivery is not configured")
		return
	}
	if err := s.deps.Mailer.SendReport(r.Context(), sess, pdf); err != nil {
		log.FromContext(r.Context()).Error().Err(err).
			Str("session_id", id).
			Str("event", "api.report_send_failed").
			Msg("report email failed")
		metrics.IncReportDispatch("send_failed")
		respondError(w, r, http.StatusBadGateway, "report rendered but email delivery failed")
		return
	}

	metrics.IncReportDispatch("sent")
	respond(w, r, http.StatusOK, "report sent to "+sess.CandidateEmail, nil)
}

// handleDownloadReport serves the rendered PDF.
func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.loadSession(w, r, id)
	if !ok {
		return
	}

	pdf, err := report.Render(sess)
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).
			Str("session_id", id).
			Str("event", "api.report_render_failed").
			Msg("report rendering failed")
		respondError(w, r, http.StatusInternalServerError, "could not render the interview report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.ReportFilename(id)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request, id string) (*session.Session, bool) {
	sess, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "session not found")
		} else {
			respondError(w, r, http.StatusInternalServerError, "could not load session")
		}
		return nil, false
	}
	return sess, true
}
