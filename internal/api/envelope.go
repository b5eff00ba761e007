// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/voxhire/voxhire/internal/log"
)

// respond writes the common envelope: success, status_code, and an optional
// message, merged with the handler's payload fields.
func respond(w http.ResponseWriter, r *http.Request, status int, message string, payload map[string]any) {
	body := map[string]any{
		"success":     status < http.StatusBadRequest,
		"status_code": status,
	}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, r, status, body)
}

// respondError writes a failure envelope with the error field set.
func respondError(w http.ResponseWriter, r *http.Request, status int, errText string) {
	writeJSON(w, r, status, map[string]any{
		"success":     false,
		"status_code": status,
		"error":       errText,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.FromContext(r.Context()).Warn().Err(err).
			Str("event", "api.response_write_failed").Msg("client gone before response")
	}
}

// decodeJSON parses the request body into dst, capping the body at 1 MiB.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(dst)
}
