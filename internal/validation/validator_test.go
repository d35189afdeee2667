// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

type relayConfig struct {
	URLs    []string `validate:"min=1,dive,relayurl"`
	Backend string   `validate:"oneof=duckdb sqlite badger"`
	Queue   int      `validate:"gte=1"`
	Pubkey  string   `validate:"omitempty,hexid"`
}

func TestValidateStruct(t *testing.T) {
	valid := relayConfig{URLs: []string{"wss://relay.one", "ws://localhost:7000"}, Backend: "duckdb", Queue: 1}

	tests := []struct {
		name    string
		mutate  func(c *relayConfig)
		wantTag string
		wantMsg string
	}{
		{name: "valid", mutate: func(c *relayConfig) {}},
		{name: "no relays", mutate: func(c *relayConfig) { c.URLs = nil }, wantTag: "min", wantMsg: "at least 1 entries"},
		{name: "http scheme", mutate: func(c *relayConfig) { c.URLs = []string{"https://relay.one"} }, wantTag: "relayurl", wantMsg: "ws:// or wss://"},
		{name: "missing host", mutate: func(c *relayConfig) { c.URLs = []string{"wss://"} }, wantTag: "relayurl"},
		{name: "unknown backend", mutate: func(c *relayConfig) { c.Backend = "postgres" }, wantTag: "oneof", wantMsg: "duckdb sqlite badger"},
		{name: "zero queue", mutate: func(c *relayConfig) { c.Queue = 0 }, wantTag: "gte"},
		{name: "bad pubkey", mutate: func(c *relayConfig) { c.Pubkey = "NOTHEX" }, wantTag: "hexid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			c.URLs = append([]string(nil), valid.URLs...)
			tt.mutate(&c)

			err := ValidateStruct(&c)
			if tt.wantTag == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v", err)
				}
				return
			}

			var sve *StructValidationError
			if !errors.As(err, &sve) {
				t.Fatalf("ValidateStruct() error = %v, want *StructValidationError", err)
			}
			if got := sve.Errors()[0].Tag(); got != tt.wantTag {
				t.Errorf("tag = %q, want %q", got, tt.wantTag)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("message %q missing %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestIsRelayURL(t *testing.T) {
	for s, want := range map[string]bool{
		"wss://relay.damus.io":  true,
		"ws://127.0.0.1:7777/x": true,
		"http://relay":          false,
		"relay.damus.io":        false,
		"":                      false,
		"wss://":                false,
	} {
		if got := IsRelayURL(s); got != want {
			t.Errorf("IsRelayURL(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestIsHexID(t *testing.T) {
	id := strings.Repeat("ab", 32)
	if !IsHexID(id) {
		t.Errorf("IsHexID(%q) = false", id)
	}
	for _, s := range []string{"", "abc", strings.Repeat("AB", 32), strings.Repeat("zz", 32)} {
		if IsHexID(s) {
			t.Errorf("IsHexID(%q) = true", s)
		}
	}
}
