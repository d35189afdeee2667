// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

//go:build !nats

package eventbus

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"
)

const natsAvailable = false

func openNATS(string, string, watermill.LoggerAdapter) (*Bus, error) {
	return nil, errors.New("NATS event bus not available: build with -tags=nats")
}
