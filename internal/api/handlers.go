// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/chest/internal/config"
	"github.com/tomtom215/chest/internal/database"
	"github.com/tomtom215/chest/internal/ingest"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/models"
	ws "github.com/tomtom215/chest/internal/websocket"
)

// Store is the read side of the dedup store.
type Store interface {
	Get(ctx context.Context, category models.Category, id string) (*models.Record, error)
	GetByReference(ctx context.Context, category models.Category, ref, id string) (*models.Record, error)
	ListByReference(ctx context.Context, category models.Category, ref string) ([]*models.Record, error)
	ListByAuthor(ctx context.Context, category models.Category, pubkey string) ([]*models.Record, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Backend() string
}

// StatusSource reports relay session state for /health.
type StatusSource interface {
	Status() ingest.Status
}

// Handler serves the read API.
type Handler struct {
	config    *config.Config
	store     Store
	status    StatusSource
	wsHub     *ws.Hub
	startTime time.Time
}

// NewHandler creates a handler. status and hub may be nil; /health then
// omits relay state and /stream answers 503.
func NewHandler(cfg *config.Config, store Store, status StatusSource, hub *ws.Hub) *Handler {
	return &Handler{
		config:    cfg,
		store:     store,
		status:    status,
		wsHub:     hub,
		startTime: time.Now(),
	}
}

// GetUser returns the latest metadata record of an author.
//
// @Summary Get user metadata
// @Description Returns the most recent kind 0 record archived for an author
// @Tags Records
// @Produce json
// @Param pubkey path string true "Author public key (hex)"
// @Success 200 {object} models.Record
// @Failure 404 {string} string "Event not found"
// @Failure 500 {string} string "Internal error"
// @Router /users/{pubkey} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	h.respondRecord(w, r, models.CategoryUserMetadata, chi.URLParam(r, "pubkey"))
}

// GetNote returns one note by event ID.
//
// @Summary Get note
// @Tags Records
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} models.Record
// @Failure 404 {string} string "Event not found"
// @Failure 500 {string} string "Internal error"
// @Router /notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	h.respondRecord(w, r, models.CategoryNote, chi.URLParam(r, "id"))
}

// GetZap returns one zap by event ID.
//
// @Summary Get zap
// @Description Returns one zap request or receipt
// @Tags Records
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} models.Record
// @Failure 404 {string} string "Event not found"
// @Failure 500 {string} string "Internal error"
// @Router /zaps/{id} [get]
func (h *Handler) GetZap(w http.ResponseWriter, r *http.Request) {
	h.respondRecord(w, r, models.CategoryZap, chi.URLParam(r, "id"))
}

// GetLongForm returns one long-form article by event ID.
//
// @Summary Get long-form article
// @Tags Records
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} models.Record
// @Failure 404 {string} string "Event not found"
// @Failure 500 {string} string "Internal error"
// @Router /long/{id} [get]
func (h *Handler) GetLongForm(w http.ResponseWriter, r *http.Request) {
	h.respondRecord(w, r, models.CategoryLongForm, chi.URLParam(r, "id"))
}

// ListNotesByAuthor returns every note by one author, oldest first.
//
// @Summary List notes by author
// @Tags Records
// @Produce json
// @Param pubkey path string true "Author public key (hex)"
// @Success 200 {array} models.Record
// @Failure 500 {string} string "Internal error"
// @Router /notes/pubkey/{pubkey} [get]
func (h *Handler) ListNotesByAuthor(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListByAuthor(r.Context(), models.CategoryNote, chi.URLParam(r, "pubkey"))
	h.respondList(w, r, recs, err)
}

// ListFolder returns every reply, reaction or zap referencing {ref}.
//
// @Summary List records referencing an event
// @Tags Records
// @Produce json
// @Param folder path string true "Folder" Enums(replies, reactions, zaps)
// @Param ref path string true "Referenced event ID"
// @Success 200 {array} models.Record
// @Failure 400 {string} string "Invalid folder name"
// @Failure 500 {string} string "Internal error"
// @Router /{folder}/{ref} [get]
func (h *Handler) ListFolder(w http.ResponseWriter, r *http.Request) {
	cat, ok := models.ParseCategory(chi.URLParam(r, "folder"))
	if !ok || !cat.IsReferenceFolder() {
		writeText(w, http.StatusBadRequest, bodyInvalidFolder)
		return
	}
	recs, err := h.store.ListByReference(r.Context(), cat, chi.URLParam(r, "ref"))
	h.respondList(w, r, recs, err)
}

// GetFromFolder returns record {id} of {folder} that refers to {ref}.
//
// @Summary Get a record referencing an event
// @Tags Records
// @Produce json
// @Param folder path string true "Folder"
// @Param ref path string true "Referenced event ID"
// @Param id path string true "Event ID"
// @Success 200 {object} models.Record
// @Failure 404 {string} string "Event not found"
// @Failure 500 {string} string "Internal error"
// @Router /{folder}/{ref}/{id} [get]
func (h *Handler) GetFromFolder(w http.ResponseWriter, r *http.Request) {
	cat, ok := models.ParseCategory(chi.URLParam(r, "folder"))
	if !ok {
		writeText(w, http.StatusNotFound, bodyNotFound)
		return
	}
	rec, err := h.store.GetByReference(r.Context(), cat, chi.URLParam(r, "ref"), chi.URLParam(r, "id"))
	h.respondFound(w, r, rec, err)
}

// GetConfig returns the effective configuration with credentials removed.
//
// @Summary Get effective configuration
// @Tags Core
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /config [get]
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.config.Redacted())
}

func (h *Handler) respondRecord(w http.ResponseWriter, r *http.Request, cat models.Category, id string) {
	rec, err := h.store.Get(r.Context(), cat, id)
	h.respondFound(w, r, rec, err)
}

func (h *Handler) respondFound(w http.ResponseWriter, r *http.Request, rec *models.Record, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeText(w, http.StatusNotFound, bodyNotFound)
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Database query error")
		writeText(w, http.StatusInternalServerError, bodyInternal)
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, recs []*models.Record, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Database query error")
		writeText(w, http.StatusInternalServerError, bodyInternal)
		return
	}
	if recs == nil {
		recs = []*models.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}
