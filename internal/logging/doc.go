// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

// Package logging provides the process-wide zerolog logger for Chest.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Int("relays", n).Msg("Starting ingestion")
//	logging.Err(err).Msg("Store unavailable")
//
// # Scoped Loggers
//
// Long-lived components take a child logger carrying identifying fields:
//
//	log := logging.ForRelay("wss://relay.example")
//	log.Warn().Err(err).Msg("Session ended")
//
//	log = logging.ForSubscription("wss://relay.example", subID)
//
// HTTP handlers use logging.Ctx(r.Context()), which includes the request id
// set by the API middleware.
//
// # slog Interop
//
// Libraries that accept *slog.Logger (suture via sutureslog, watermill) are
// given NewSlogLogger, which forwards every record to zerolog.
//
// # Configuration
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
package logging
