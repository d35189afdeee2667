// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tomtom215/chest/docs"
	"github.com/tomtom215/chest/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for handler.
func NewRouter(handler *Handler) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(ChiMiddlewareConfigFrom(handler.config.Server)),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusNotFound, bodyNotFound)
	})

	// Operational endpoints are not rate limited
	r.Get("/health", router.handler.Health)
	r.Get("/health/live", router.handler.HealthLive)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/stream", router.handler.Stream)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit("records"))
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Get("/config", router.handler.GetConfig)
		r.Get("/users/{pubkey}", router.handler.GetUser)
		r.Get("/notes/{id}", router.handler.GetNote)
		r.Get("/notes/pubkey/{pubkey}", router.handler.ListNotesByAuthor)
		r.Get("/zaps/{id}", router.handler.GetZap)
		r.Get("/long/{id}", router.handler.GetLongForm)
		r.Get("/{folder}/{ref}", router.handler.ListFolder)
		r.Get("/{folder}/{ref}/{id}", router.handler.GetFromFolder)
	})

	return r
}
