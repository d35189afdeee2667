// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package middleware provides HTTP middleware for the read API.

Key Components:

  - RequestID: UUID request IDs, propagated in X-Request-ID and stored on the
    request context for logging.Ctx
  - PrometheusMetrics: api_requests_total, api_request_duration_seconds and
    api_active_requests, labelled by chi route pattern

Both are chi-compatible (func(http.Handler) http.Handler):

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

CORS, rate limiting and compression come from go-chi/cors, go-chi/httprate
and chi's own middleware package; see internal/api.
*/
package middleware
