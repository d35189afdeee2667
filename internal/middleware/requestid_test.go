// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func captureID(t *testing.T, header string) (ctxID, respID string) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/notes/abc", nil)
	if header != "" {
		req.Header.Set(RequestIDHeader, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get(RequestIDHeader)
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	ctxID, respID := captureID(t, "")
	if _, err := uuid.Parse(respID); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", respID, err)
	}
	if ctxID != respID {
		t.Errorf("context ID %q != response ID %q", ctxID, respID)
	}
}

func TestRequestID_PreservesUpstreamProxyID(t *testing.T) {
	ctxID, respID := captureID(t, "proxy-123")
	if ctxID != "proxy-123" || respID != "proxy-123" {
		t.Errorf("got context %q, header %q; want proxy-123", ctxID, respID)
	}
}

func TestRequestID_RejectsOversizedID(t *testing.T) {
	_, respID := captureID(t, strings.Repeat("x", maxRequestIDLen+1))
	if _, err := uuid.Parse(respID); err != nil {
		t.Errorf("oversized ID was kept: %q", respID)
	}
}

func TestRequestID_MultipleRequests(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		_, id := captureID(t, "")
		if seen[id] {
			t.Fatalf("duplicate request ID %s", id)
		}
		seen[id] = true
	}
}

func TestGetRequestID_WithoutID(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}

func BenchmarkRequestID(b *testing.B) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
