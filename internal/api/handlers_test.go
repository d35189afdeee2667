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

	"github.com/tomtom215/chest/internal/models"
)

func TestRecordRoutes(t *testing.T) {
	router := newTestRouter(t, seededStore(t), nil, nil)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantID   string
		wantBody string
	}{
		{name: "latest user metadata", path: "/users/" + author, wantCode: http.StatusOK, wantID: "u2"},
		{name: "unknown user", path: "/users/nobody", wantCode: http.StatusNotFound, wantBody: "Event not found"},
		{name: "note", path: "/notes/" + noteID, wantCode: http.StatusOK, wantID: noteID},
		{name: "note lookup ignores other folders", path: "/notes/l1", wantCode: http.StatusNotFound, wantBody: "Event not found"},
		{name: "zap", path: "/zaps/z1", wantCode: http.StatusOK, wantID: "z1"},
		{name: "long form", path: "/long/l1", wantCode: http.StatusOK, wantID: "l1"},
		{name: "missing long form", path: "/long/zzz", wantCode: http.StatusNotFound, wantBody: "Event not found"},
		{name: "reply by reference", path: "/replies/" + noteID + "/r1", wantCode: http.StatusOK, wantID: "r1"},
		{name: "reply under wrong reference", path: "/replies/other/r1", wantCode: http.StatusNotFound, wantBody: "Event not found"},
		{name: "unknown folder lookup", path: "/bogus/" + noteID + "/r1", wantCode: http.StatusNotFound, wantBody: "Event not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.path)
			if rec.Code != tt.wantCode {
				t.Fatalf("GET %s = %d, want %d (body %q)", tt.path, rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantID != "" {
				var got models.Record
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if got.EventID != tt.wantID {
					t.Errorf("event_id = %q, want %q", got.EventID, tt.wantID)
				}
			}
		})
	}
}

func TestRecordJSONShape(t *testing.T) {
	router := newTestRouter(t, seededStore(t), nil, nil)
	rec := get(t, router, "/replies/"+noteID+"/r1")

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"event_id", "pubkey", "created_at", "kind", "content", "sig", "tags", "folder", "ref_event"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing field %q in %s", key, rec.Body.String())
		}
	}
	if string(fields["folder"]) != `"replies"` || string(fields["ref_event"]) != `"`+noteID+`"` {
		t.Errorf("folder/ref_event = %s/%s", fields["folder"], fields["ref_event"])
	}
}

func TestListFolder(t *testing.T) {
	router := newTestRouter(t, seededStore(t), nil, nil)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantIDs  []string
	}{
		{name: "replies", path: "/replies/" + noteID, wantCode: http.StatusOK, wantIDs: []string{"r1"}},
		{name: "reactions", path: "/reactions/" + noteID, wantCode: http.StatusOK, wantIDs: []string{"x1"}},
		// /zaps/{id} is registered first and owns single-segment zap paths
		{name: "zaps prefix is a single lookup", path: "/zaps/" + noteID, wantCode: http.StatusNotFound},
		{name: "no matches is empty array", path: "/replies/unknown", wantCode: http.StatusOK, wantIDs: []string{}},
		{name: "long has no reference lookup", path: "/long/" + noteID + "/x", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.path)
			if rec.Code != tt.wantCode {
				t.Fatalf("GET %s = %d, want %d (body %q)", tt.path, rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantIDs == nil {
				return
			}
			if len(tt.wantIDs) == 0 && strings.TrimSpace(rec.Body.String()) != "[]" {
				t.Errorf("body = %q, want []", rec.Body.String())
			}
			var got []models.Record
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].EventID != id {
					t.Errorf("record %d = %s, want %s", i, got[i].EventID, id)
				}
			}
		})
	}
}

func TestListFolderInvalid(t *testing.T) {
	router := newTestRouter(t, seededStore(t), nil, nil)

	for _, folder := range []string{"users", "long", "bogus"} {
		t.Run(folder, func(t *testing.T) {
			rec := get(t, router, "/"+folder+"/"+noteID+"x")
			if folder == "users" || folder == "long" {
				// A dedicated single-record route owns these prefixes
				if rec.Code != http.StatusNotFound {
					t.Errorf("GET /%s/... = %d, want 404", folder, rec.Code)
				}
				return
			}
			if rec.Code != http.StatusBadRequest || rec.Body.String() != "Invalid folder name" {
				t.Errorf("GET /%s/... = %d %q, want 400 Invalid folder name", folder, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListNotesByAuthor(t *testing.T) {
	router := newTestRouter(t, seededStore(t), nil, nil)

	rec := get(t, router, "/notes/pubkey/"+author)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []models.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "n2" || got[1].EventID != noteID {
		t.Errorf("notes = %+v, want n2 then n1", got)
	}
}

func TestStoreErrors(t *testing.T) {
	router := newTestRouter(t, brokenStore{}, nil, nil)

	for _, path := range []string{"/notes/" + noteID, "/users/" + author, "/replies/" + noteID, "/notes/pubkey/" + author, "/zaps/" + noteID + "/z1"} {
		t.Run(path, func(t *testing.T) {
			rec := get(t, router, path)
			if rec.Code != http.StatusInternalServerError || rec.Body.String() != "Internal error" {
				t.Errorf("GET %s = %d %q, want 500 Internal error", path, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetConfig(t *testing.T) {
	router := newTestRouter(t, seededStore(t), nil, nil)

	rec := get(t, router, "/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "secret") {
		t.Errorf("config leaks credentials: %s", body)
	}
	if !strings.Contains(body, "wss://relay.example.com") {
		t.Errorf("config missing relay URL: %s", body)
	}
}

func TestNotFoundRoute(t *testing.T) {
	router := newTestRouter(t, seededStore(t), nil, nil)
	if rec := get(t, router, "/a/b/c/d"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
