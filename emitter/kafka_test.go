package emitter

import (
	"context"
	"github.com/adamdorogi/anomaly-detection/broker"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	em := New(Config{Brokers: []string{"localhost:9092"}, Topic: "decisions"})
	defer func() { _ = em.Close() }()
	assert.Equal(t, kafka.RequireAll, em.writer.RequiredAcks)
	assert.Equal(t, time.Second, em.writer.BatchTimeout)

	one := New(Config{
		Brokers:      []string{"localhost:9092"},
		Topic:        "decisions",
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 5 * time.Second,
	})
	defer func() { _ = one.Close() }()
	assert.Equal(t, kafka.RequireOne, one.writer.RequiredAcks)
	assert.Equal(t, 5*time.Second, one.writer.BatchTimeout)
}

func TestPublishDecisionsStopsOnCancel(t *testing.T) {
	br := broker.NewBroker()
	go br.Start()
	defer br.Stop()

	em := New(Config{Brokers: []string{"localhost:9092"}, Topic: "decisions"})
	defer func() { _ = em.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	done := make(chan struct{})
	go func() {
		PublishDecisions(ctx, br, em, errCh)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after cancellation")
	}

	select {
	case err := <-errCh:
		require.NoError(t, err)
	default:
	}
}
