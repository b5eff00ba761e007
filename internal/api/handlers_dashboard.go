// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/voxhire/voxhire/internal/log"
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Dashboard.Stats(r.Context())
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).
			Str("event", "api.dashboard_stats_failed").Msg("stats aggregation failed")
		respondError(w, r, http.StatusInternalServerError, "could not compute dashboard stats")
		return
	}
	respond(w, r, http.StatusOK, "", map[string]any{"stats": stats})
}
