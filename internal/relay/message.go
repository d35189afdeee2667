// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package relay

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/chest/internal/models"
)

// Relay-to-client message labels.
const (
	LabelEvent  = "EVENT"
	LabelNotice = "NOTICE"
	LabelEOSE   = "EOSE"
	LabelOK     = "OK"
	LabelClosed = "CLOSED"
	LabelAuth   = "AUTH"
)

// ErrMalformedMessage is returned when an inbound frame is not valid JSON or
// an EVENT body does not decode into an Event. It is fatal to the session.
var ErrMalformedMessage = errors.New("malformed relay message")

// Message is a decoded inbound frame. Label is empty for frames that do not
// have the ["LABEL", ...] array shape; those are ignored by the pipeline.
type Message struct {
	Label          string
	SubscriptionID string
	Event          *models.Event
	Notice         string
}

// IsEvent reports whether the message carries an event.
func (m Message) IsEvent() bool {
	return m.Label == LabelEvent && m.Event != nil
}

// ParseMessage decodes one relay frame.
//
// Only ["EVENT", <sub-id>, <event>] frames yield an Event. NOTICE, EOSE and
// CLOSED are decoded for logging; any other valid JSON is returned with an
// empty Label.
func ParseMessage(data []byte) (Message, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		if json.Valid(data) {
			return Message{}, nil
		}
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(parts) == 0 {
		return Message{}, nil
	}

	var label string
	if err := json.Unmarshal(parts[0], &label); err != nil {
		return Message{}, nil
	}

	msg := Message{Label: label}
	switch label {
	case LabelEvent:
		if len(parts) < 3 {
			return Message{}, nil
		}
		_ = json.Unmarshal(parts[1], &msg.SubscriptionID)
		body := bytes.TrimSpace(parts[2])
		if bytes.Equal(body, []byte("null")) {
			return Message{}, fmt.Errorf("%w: null event body", ErrMalformedMessage)
		}
		var ev models.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			return Message{}, fmt.Errorf("%w: event body: %v", ErrMalformedMessage, err)
		}
		msg.Event = &ev

	case LabelNotice:
		if len(parts) > 1 {
			_ = json.Unmarshal(parts[1], &msg.Notice)
		}

	case LabelEOSE, LabelClosed:
		if len(parts) > 1 {
			_ = json.Unmarshal(parts[1], &msg.SubscriptionID)
		}
		if label == LabelClosed && len(parts) > 2 {
			_ = json.Unmarshal(parts[2], &msg.Notice)
		}
	}
	return msg, nil
}
