// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSupervisorTreeConstruction(t *testing.T) {
	tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("Root() = nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("zero config resolved to %+v, want defaults", tree.config)
	}

	custom := TreeConfig{FailureThreshold: 2, FailureDecay: 1, FailureBackoff: time.Second, ShutdownTimeout: time.Second}
	tree, _ = NewSupervisorTree(testLogger(), custom)
	if tree.config != custom {
		t.Errorf("config = %+v, want %+v", tree.config, custom)
	}
}

func TestSupervisorTreeLayers(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

	services := map[string]*mockService{
		"data":      newMockService("mock-data"),
		"ingest":    newMockService("mock-relay"),
		"messaging": newMockService("mock-forwarder"),
		"api":       newMockService("mock-http"),
	}
	tree.AddDataService(services["data"])
	tree.AddIngestService(services["ingest"])
	tree.AddMessagingService(services["messaging"])
	tree.AddAPIService(services["api"])

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for layer, svc := range services {
		svc := svc
		eventually(t, func() bool { return svc.startCount.Load() == 1 }, layer+" service did not start")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil || len(report) != 0 {
		t.Errorf("UnstoppedServiceReport() = %v, %v; want empty", report, err)
	}
}

func TestSupervisorTreeRestartsFailedService(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	flaky := newMockService("flaky-relay")
	flaky.maxFails = 2
	steady := newMockService("steady-http")
	tree.AddIngestService(flaky)
	tree.AddAPIService(steady)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)

	eventually(t, func() bool { return flaky.startCount.Load() >= 3 }, "flaky service was not restarted")
	if got := steady.startCount.Load(); got != 1 {
		t.Errorf("api layer service started %d times, want 1", got)
	}
}

func TestSupervisorTreeDoNotRestart(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})

	var starts atomic.Int32
	done := make(chan struct{})
	tree.AddIngestService(serviceFunc(func(ctx context.Context) error {
		if starts.Add(1) == 1 {
			close(done)
		}
		return suture.ErrDoNotRestart
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)

	<-done
	time.Sleep(50 * time.Millisecond)
	if n := starts.Load(); n != 1 {
		t.Errorf("terminated service started %d times, want 1", n)
	}
}

func TestRemoveIngestService(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	svc := newMockService("relay")
	token := tree.AddIngestService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)
	eventually(t, func() bool { return svc.startCount.Load() == 1 }, "service did not start")

	if err := tree.RemoveIngestService(token); err != nil {
		t.Errorf("RemoveIngestService() error = %v", err)
	}
}

type serviceFunc func(ctx context.Context) error

func (f serviceFunc) Serve(ctx context.Context) error { return f(ctx) }
