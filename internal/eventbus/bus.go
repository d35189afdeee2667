// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/chest/internal/config"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/metrics"
	"github.com/tomtom215/chest/internal/models"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "chest_records"

// ErrClosed is returned by a closed Bus.
var ErrClosed = errors.New("event bus closed")

// Bus carries newly stored records on a single Watermill topic.
type Bus struct {
	pub     message.Publisher
	sub     message.Subscriber
	topic   string
	backend string
	closed  atomic.Bool
}

// Open returns a NATS JetStream bus when the binary is built with the nats
// tag and a NATS URL is configured, and an in-process GoChannel bus
// otherwise.
func Open(cfg config.PublishConfig) (*Bus, error) {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	if natsAvailable && cfg.NATSURL != "" {
		b, err := openNATS(cfg.NATSURL, topic, logger)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("topic", topic).Str("url", cfg.NATSURL).Msg("Event bus connected to NATS")
		return b, nil
	}

	logging.Info().Str("topic", topic).Msg("Event bus using in-process channel")
	return newGoChannel(topic, logger), nil
}

// NewGoChannel returns an in-process bus on topic.
func NewGoChannel(topic string) *Bus {
	return newGoChannel(topic, watermill.NewSlogLogger(logging.NewSlogLogger()))
}

func newGoChannel(topic string, logger watermill.LoggerAdapter) *Bus {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)
	return &Bus{pub: ch, sub: ch, topic: topic, backend: "gochannel"}
}

// Topic returns the topic records are published on.
func (b *Bus) Topic() string { return b.topic }

// Backend returns "gochannel" or "nats".
func (b *Bus) Backend() string { return b.backend }

// Publish sends rec to the topic. The message UUID is the event id so a
// broker with deduplication drops replays.
func (b *Bus) Publish(ctx context.Context, rec *models.Record) error {
	if b.closed.Load() {
		return ErrClosed
	}

	data, err := json.Marshal(rec)
	if err != nil {
		metrics.RecordsPublished.WithLabelValues("failure").Inc()
		return fmt.Errorf("encode record %s: %w", rec.EventID, err)
	}

	msg := message.NewMessage(rec.EventID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("folder", rec.Category.String())
	msg.Metadata.Set("kind", strconv.FormatUint(uint64(rec.Kind), 10))
	if ref := rec.ReferenceID(); ref != "" {
		msg.Metadata.Set("ref_event", ref)
	}

	if err := b.pub.Publish(b.topic, msg); err != nil {
		metrics.RecordsPublished.WithLabelValues("failure").Inc()
		return fmt.Errorf("publish record %s: %w", rec.EventID, err)
	}
	metrics.RecordsPublished.WithLabelValues("success").Inc()
	return nil
}

// Subscribe returns decoded records until ctx is done or the bus closes.
// Undecodable messages are acknowledged and skipped.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *models.Record, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	msgs, err := b.sub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", b.topic, err)
	}

	out := make(chan *models.Record)
	go func() {
		defer close(out)
		for msg := range msgs {
			var rec models.Record
			if err := json.Unmarshal(msg.Payload, &rec); err != nil {
				logging.Warn().Str("message_uuid", msg.UUID).Err(err).Msg("Skipping undecodable record message")
				msg.Ack()
				continue
			}
			select {
			case out <- &rec:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close closes the publisher and subscriber. It is safe to call more than
// once.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := b.pub.Close()
	if b.sub != nil && any(b.sub) != any(b.pub) {
		err = errors.Join(err, b.sub.Close())
	}
	return err
}
