// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/validation"
)

// Validate checks that required configuration is present and valid.
// Struct tag rules run first, then the semantic checks below.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	validators := []func() error{
		c.validateRelays,
		c.validateEvent,
		c.validateExpansion,
		c.validateDatabase,
		c.validateServer,
		c.validatePublish,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

// validateRelays rejects non-WebSocket URLs and duplicates. A duplicate
// would open two primary sessions against the same relay.
func (c *Config) validateRelays() error {
	seen := make(map[string]struct{}, len(c.Relays.URLs))
	for _, u := range c.Relays.URLs {
		if err := validateRelayURL(u); err != nil {
			return fmt.Errorf("RELAY_URLS entry %q is invalid: %w", u, err)
		}
		key := strings.TrimRight(u, "/")
		if _, dup := seen[key]; dup {
			return fmt.Errorf("RELAY_URLS contains %q more than once", u)
		}
		seen[key] = struct{}{}
	}

	if c.Relays.PingInterval > 0 && c.Relays.PongWait > 0 && c.Relays.PongWait <= c.Relays.PingInterval {
		return fmt.Errorf("RELAY_PONG_WAIT (%v) must be longer than RELAY_PING_INTERVAL (%v)",
			c.Relays.PongWait, c.Relays.PingInterval)
	}
	return nil
}

func (c *Config) validateEvent() error {
	seen := make(map[uint32]struct{}, len(c.Event.Kinds))
	for _, k := range c.Event.Kinds {
		if _, dup := seen[k]; dup {
			return fmt.Errorf("EVENT_KINDS contains kind %d more than once", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// validateExpansion requires per-kind initial filters while expansion is on.
func (c *Config) validateExpansion() error {
	if !c.Expansion.Enabled {
		return nil
	}
	if !c.Subscription.PerKind {
		return fmt.Errorf("SUBSCRIPTION_PER_KIND must be true when EXPANSION_ENABLED=true")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Backend == BackendBadger && c.Database.Path == ":memory:" {
		return fmt.Errorf("DATABASE_PATH must be a directory or empty for the badger backend")
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if !c.Publish.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Publish.Topic) == "" {
		return fmt.Errorf("PUBLISH_TOPIC is required when PUBLISH_ENABLED=true")
	}
	if c.Publish.NATSURL != "" {
		if err := validateNATSURL(c.Publish.NATSURL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level (trace, debug, info, warn, error)", c.Logging.Level)
	}
	return nil
}
