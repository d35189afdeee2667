// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package services provides suture.Service wrappers for components whose
lifecycle is not already a Serve(ctx) error method.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server; ListenAndServe in a goroutine, Shutdown with a
    timeout on cancellation

WebSocket Hub (WebSocketHubService):
  - Runs websocket.Hub.RunWithContext; clients receive close frames on
    shutdown

Store Maintenance (StoreMaintenanceService):
  - Calls database.Store.Maintain on a ticker (DuckDB CHECKPOINT, SQLite
    PRAGMA optimize, Badger value log GC)

Relay services, the expander and the event bus forwarder implement
suture.Service themselves and are added to the tree directly.

All wrappers return ctx.Err() on graceful shutdown and implement
fmt.Stringer so suture logs name them.
*/
package services
