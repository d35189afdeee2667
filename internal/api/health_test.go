// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/chest/internal/ingest"
)

func TestHealth(t *testing.T) {
	up := fixedStatus{Relays: []ingest.RelayStatus{
		{URL: "wss://a", Connected: true, Breaker: "closed"},
		{URL: "wss://b", Connected: false, Breaker: "open"},
	}, SecondarySessions: 3}
	down := fixedStatus{Relays: []ingest.RelayStatus{{URL: "wss://a", Breaker: "open"}}}

	tests := []struct {
		name          string
		store         Store
		status        StatusSource
		wantCode      int
		wantStatus    string
		wantConnected int
	}{
		{name: "healthy", store: seededStore(t), status: up, wantCode: http.StatusOK, wantStatus: statusHealthy, wantConnected: 1},
		{name: "no relay connected", store: seededStore(t), status: down, wantCode: http.StatusServiceUnavailable, wantStatus: statusDegraded},
		{name: "store down", store: brokenStore{}, status: up, wantCode: http.StatusServiceUnavailable, wantStatus: statusDegraded, wantConnected: 1},
		{name: "without ingest", store: seededStore(t), wantCode: http.StatusOK, wantStatus: statusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestRouter(t, tt.store, tt.status, nil), "/health")
			if rec.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			var got HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.RelaysConnected != tt.wantConnected {
				t.Errorf("RelaysConnected = %d, want %d", got.RelaysConnected, tt.wantConnected)
			}
		})
	}
}

func TestHealthReportsStore(t *testing.T) {
	rec := get(t, newTestRouter(t, seededStore(t), nil, nil), "/health")
	var got HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.DatabaseConnected || got.DatabaseBackend != "sqlite" || got.Records != 8 {
		t.Errorf("health = %+v, want sqlite with 8 records", got)
	}
}

func TestHealthLive(t *testing.T) {
	rec := get(t, newTestRouter(t, brokenStore{}, nil, nil), "/health/live")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, seededStore(t), nil, nil)
	get(t, router, "/notes/"+noteID)

	rec := get(t, router, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `api_requests_total{endpoint="/notes/{id}"`) {
		t.Error("/metrics missing api_requests_total for /notes/{id}")
	}
}

func TestSwaggerDoc(t *testing.T) {
	rec := get(t, newTestRouter(t, seededStore(t), nil, nil), "/swagger/doc.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var doc struct {
		Info  struct{ Title string } `json:"info"`
		Paths map[string]any         `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Info.Title != "Chest API" {
		t.Errorf("title = %q", doc.Info.Title)
	}
	for _, p := range []string{"/health", "/notes/{id}", "/notes/pubkey/{pubkey}", "/{folder}/{ref}", "/{folder}/{ref}/{id}", "/stream"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("doc.json missing path %s", p)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	rec := get(t, newTestRouter(t, seededStore(t), nil, nil), "/notes/"+noteID)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitDisabled = false
	cfg.Server.RateLimitReqs = 2
	router := NewRouter(NewHandler(cfg, seededStore(t), nil, nil)).SetupChi()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(t, router, "/notes/"+noteID).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Operational routes are exempt
	if code := get(t, router, "/health/live").Code; code != http.StatusOK {
		t.Errorf("/health/live = %d, want 200", code)
	}
}
