// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/chest/internal/metrics"
)

func instrumentedRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/mw-test/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "missing" {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func TestPrometheusMetrics(t *testing.T) {
	router := instrumentedRouter()

	tests := []struct {
		name     string
		path     string
		endpoint string
		status   string
	}{
		{name: "matched route", path: "/mw-test/abc", endpoint: "/mw-test/{id}", status: "200"},
		{name: "error status", path: "/mw-test/missing", endpoint: "/mw-test/{id}", status: "404"},
		{name: "no route", path: "/nowhere/at/all", endpoint: unmatchedRoute, status: "404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, tt.endpoint, tt.status)
			before := testutil.ToFloat64(counter)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("api_requests_total{%s,%s} delta = %v, want 1", tt.endpoint, tt.status, got)
			}
		})
	}
}

func TestPrometheusMetrics_ActiveRequests(t *testing.T) {
	var during float64
	start := testutil.ToFloat64(metrics.APIActiveRequests)
	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(metrics.APIActiveRequests)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if during != start+1 {
		t.Errorf("active during request = %v, want %v", during, start+1)
	}
	if got := testutil.ToFloat64(metrics.APIActiveRequests); got != start {
		t.Errorf("active after request = %v, want %v", got, start)
	}
}

func TestMetricsResponseWriter(t *testing.T) {
	t.Run("first status wins", func(t *testing.T) {
		rw := &metricsResponseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
		rw.WriteHeader(http.StatusTeapot)
		rw.WriteHeader(http.StatusOK)
		if rw.statusCode != http.StatusTeapot {
			t.Errorf("statusCode = %d, want 418", rw.statusCode)
		}
	})

	t.Run("hijack unsupported", func(t *testing.T) {
		rw := &metricsResponseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
		if _, _, err := rw.Hijack(); err == nil {
			t.Error("Hijack() on recorder succeeded")
		}
	})
}

func BenchmarkPrometheusMetrics(b *testing.B) {
	router := instrumentedRouter()
	req := httptest.NewRequest(http.MethodGet, "/mw-test/abc", nil)
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}
