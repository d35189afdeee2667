// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

// Package validation wraps go-playground/validator v10 with a process-wide
// validator instance and the custom rules used by Chest's configuration.
//
//	type RelaysConfig struct {
//	    URLs []string `validate:"min=1,dive,relayurl"`
//	}
//
//	if err := validation.ValidateStruct(&cfg); err != nil {
//	    return fmt.Errorf("invalid configuration: %w", err)
//	}
//
// Error messages use the struct namespace (for example
// "Config.Relays.URLs[0]") so configuration mistakes point at the offending key.
package validation
