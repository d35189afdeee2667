// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/metrics"
	"github.com/tomtom215/chest/internal/models"
	ws "github.com/tomtom215/chest/internal/websocket"
)

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts non-browser clients, which send no Origin,
// and browsers whose origin is in the CORS allow-list.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// Stream upgrades to the live record feed. ?folder=notes,replies limits the
// feed to those folders.
//
// @Summary Live record stream
// @Description Upgrades to a WebSocket that pushes every newly archived record
// @Tags Stream
// @Param folder query string false "Comma-separated folders to receive"
// @Success 101 {object} models.Record "Switching protocols"
// @Failure 400 {string} string "Invalid folder name"
// @Failure 503 {string} string "Stream unavailable"
// @Router /stream [get]
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		writeText(w, http.StatusServiceUnavailable, "Stream unavailable")
		return
	}

	folders, ok := parseFolders(r.URL.Query().Get("folder"))
	if !ok {
		writeText(w, http.StatusBadRequest, bodyInvalidFolder)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn, folders...)
	h.wsHub.Register <- client
	client.Start()
}

// parseFolders splits a comma-separated folder list. An empty list means
// every folder.
func parseFolders(raw string) ([]models.Category, bool) {
	if raw == "" {
		return nil, true
	}
	var out []models.Category
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cat, ok := models.ParseCategory(part)
		if !ok {
			return nil, false
		}
		out = append(out, cat)
	}
	return out, true
}

// sanitizeLogValue strips control characters and bounds length.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
