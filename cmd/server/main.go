// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/chest/internal/api"
	"github.com/tomtom215/chest/internal/config"
	"github.com/tomtom215/chest/internal/database"
	"github.com/tomtom215/chest/internal/eventbus"
	"github.com/tomtom215/chest/internal/ingest"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/metrics"
	"github.com/tomtom215/chest/internal/models"
	"github.com/tomtom215/chest/internal/supervisor"
	"github.com/tomtom215/chest/internal/supervisor/services"
	ws "github.com/tomtom215/chest/internal/websocket"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// streamSink feeds the stream hub directly when the event bus is disabled.
type streamSink struct {
	hub *ws.Hub
}

func (s streamSink) Publish(_ context.Context, rec *models.Record) error {
	s.hub.BroadcastRecord(rec)
	return nil
}

// @title Chest API
// @version 1.0
// @description Read API over an archive of relay events, grouped into folders
// @description (users, notes, replies, reactions, zaps, long) and deduplicated by event id.
// @description Record routes answer plain-text 404 "Event not found" on a miss.
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /
// @schemes http https
//
// @tag.name Records
// @tag.description Archived events by folder, author or referenced event
//
// @tag.name Core
// @tag.description Health and configuration
//
// @tag.name Stream
// @tag.description Live WebSocket feed of newly archived records
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().Str("version", version).Msg("Starting Chest with supervisor tree")
	logging.Info().Str("summary", cfg.String()).Msg("Configuration loaded")

	store, err := database.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open dedup store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing dedup store")
		}
	}()

	hub := ws.NewHub()

	var bus *eventbus.Bus
	var sink ingest.Sink = streamSink{hub: hub}
	if cfg.Publish.Enabled {
		bus, err = eventbus.Open(cfg.Publish)
		if err != nil {
			// Fatal skips deferred calls.
			_ = store.Close()
			logging.Fatal().Err(err).Msg("Failed to open event bus")
		}
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event bus")
			}
		}()
		sink = bus
		logging.Info().
			Str("backend", bus.Backend()).
			Str("topic", bus.Topic()).
			Msg("Event bus initialized")
	}

	coordinator, err := ingest.New(cfg, store, sink)
	if err != nil {
		_ = store.Close()
		logging.Fatal().Err(err).Msg("Failed to initialize ingestion")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		_ = store.Close()
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === DATA LAYER ===
	if cfg.Database.MaintenanceInterval > 0 {
		tree.AddDataService(services.NewStoreMaintenanceService(store, cfg.Database.MaintenanceInterval))
		logging.Info().
			Dur("interval", cfg.Database.MaintenanceInterval).
			Msg("Store maintenance service added")
	}

	// === INGEST LAYER ===
	for _, svc := range coordinator.Services() {
		tree.AddIngestService(svc)
	}
	logging.Info().Int("relays", len(coordinator.Relays())).Msg("Relay sessions added to supervisor tree")

	// === MESSAGING LAYER ===
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	if bus != nil {
		tree.AddMessagingService(eventbus.NewForwarder(bus, hub))
	}

	// === API LAYER ===
	if cfg.Server.Enabled {
		handler := api.NewHandler(cfg, store, coordinator, hub)
		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           api.NewRouter(handler).SetupChi(),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
		logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
	}

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
