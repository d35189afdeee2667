// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/chest/internal/ingest"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/metrics"
)

const healthTimeout = 2 * time.Second

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthStatus is the /health response.
type HealthStatus struct {
	Status            string         `json:"status"`
	DatabaseBackend   string         `json:"database_backend"`
	DatabaseConnected bool           `json:"database_connected"`
	Records           int64          `json:"records"`
	RelaysConnected   int            `json:"relays_connected"`
	Relays            *ingest.Status `json:"ingest,omitempty"`
	StreamClients     int            `json:"stream_clients"`
	Uptime            float64        `json:"uptime_seconds"`
}

// Health reports store reachability and relay session state. It answers
// 503 when the store is unreachable or no primary relay is connected.
//
// @Summary Get service health
// @Description Returns store reachability, record count, relay session state and stream clients
// @Tags Core
// @Produce json
// @Success 200 {object} HealthStatus "Store reachable and at least one relay connected"
// @Failure 503 {object} HealthStatus "Store unreachable or no relay connected"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	health := HealthStatus{
		Status:          statusHealthy,
		DatabaseBackend: h.store.Backend(),
		Uptime:          time.Since(h.startTime).Seconds(),
	}
	metrics.AppUptime.Set(health.Uptime)

	if err := h.store.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("health check: store unreachable")
		health.Status = statusDegraded
	} else {
		health.DatabaseConnected = true
		if n, err := h.store.Count(ctx); err == nil {
			health.Records = n
		}
	}

	if h.status != nil {
		st := h.status.Status()
		health.Relays = &st
		for _, rs := range st.Relays {
			if rs.Connected {
				health.RelaysConnected++
			}
		}
		if health.RelaysConnected == 0 {
			health.Status = statusDegraded
		}
	}

	if h.wsHub != nil {
		health.StreamClients = h.wsHub.GetClientCount()
	}

	code := http.StatusOK
	if health.Status != statusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

// HealthLive answers 200 while the process is running.
//
// @Summary Liveness check
// @Tags Core
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
