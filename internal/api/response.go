// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/chest/internal/logging"
)

// Plain-text error bodies returned by the record routes.
const (
	bodyNotFound      = "Event not found"
	bodyInternal      = "Internal error"
	bodyInvalidFolder = "Invalid folder name"
)

// writeJSON encodes v with status. Encoding happens before the header is
// written so a marshal failure can still produce a 500.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
		writeText(w, http.StatusInternalServerError, bodyInternal)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
