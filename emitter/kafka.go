// Package emitter publishes decisions onto a kafka topic for downstream
// alerting pipelines.
package emitter

import (
	"context"
	"encoding/json"
	"github.com/adamdorogi/anomaly-detection/broker"
	"github.com/adamdorogi/anomaly-detection/schema"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"time"
)

type Config struct {
	Brokers []string
	Topic   string

	// Zero selects RequireAll; RequireNone (kafka's zero value) is not
	// reachable through this config.
	RequiredAcks kafka.RequiredAcks

	Compression kafka.Compression

	// Zero selects one second.
	BatchTimeout time.Duration
}

type Emitter struct {
	writer *kafka.Writer
}

func New(cfg Config) *Emitter {
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = kafka.RequireAll
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = time.Second
	}

	return &Emitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			RequiredAcks: cfg.RequiredAcks,
			Compression:  cfg.Compression,
			BatchTimeout: cfg.BatchTimeout,
		},
	}
}

func (e *Emitter) Close() error {
	return e.writer.Close()
}

// Emit writes one decision, keyed by series name so a partitioned topic
// keeps per-series order.
func (e *Emitter) Emit(ctx context.Context, d schema.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "marshal decision")
	}

	err = e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(d.Series),
		Time:  d.Timestamp,
		Value: payload,
	})
	if err != nil {
		return errors.Wrap(err, "write message")
	}
	return nil
}

// PublishDecisions forwards every decision seen on the broker to kafka
// until ctx is canceled.
func PublishDecisions(
	ctx context.Context,
	br *broker.Broker,
	em *Emitter,
	errCh chan error,
) {
	msgCh := br.Subscribe()
	defer br.Unsubscribe(msgCh)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgCh:
			switch m := msg.(type) {
			case schema.Decision:
				if err := em.Emit(ctx, m); err != nil {
					errCh <- errors.Wrap(err, "emit decision")
					return
				}
			}
		}
	}
}
