// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/rundown"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.L().Warn().Err(err).Str(log.FieldEvent, "api.encode_failed").Msg("failed to write response")
	}
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	p := Problem{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

// writeError maps err onto its rundown.Error classification.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := rundown.CodeOf(err)
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	detail := err.Error()
	var re *rundown.Error
	if errors.As(err, &re) {
		detail = re.Message
	}
	if status >= 500 {
		log.FromContext(r.Context()).Error().Err(err).
			Str(log.FieldEvent, "api.request_failed").
			Str(log.FieldPath, r.URL.Path).
			Msg("request failed")
	}
	writeProblem(w, r, status, detail)
}
