// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package supervisor provides process supervision using suture v4.

Every long-running component runs as a suture.Service in a four-layer tree:

	RootSupervisor ("chest")
	├── DataSupervisor ("data-layer")
	│   └── StoreMaintenanceService
	├── IngestSupervisor ("ingest-layer")
	│   ├── relay:<url> (one per configured relay)
	│   └── expander
	├── MessagingSupervisor ("messaging-layer")
	│   ├── eventbus-forwarder
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A relay that keeps failing backs off inside its own layer; the API keeps
serving stored records meanwhile.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	for _, svc := range coordinator.Services() {
	    tree.AddIngestService(svc)
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

# Service Return Values

  - ctx.Err(): shutdown requested
  - suture.ErrDoNotRestart: the service is finished (a relay whose
    reconnects are disabled, for example)
  - any other error or a panic: restarted with backoff

# Failure Handling

Failures decay over FailureDecay seconds. Once more than FailureThreshold
accumulate, the supervisor waits FailureBackoff before the next restart.
Supervisor events are logged through sutureslog.

UnstoppedServiceReport lists services that did not return within
ShutdownTimeout; main logs it after shutdown.
*/
package supervisor
