// Package persistence mirrors decisions into redis so other services
// can read the latest verdict per series without touching the detector.
package persistence

import (
	"context"
	"encoding/json"
	"github.com/adamdorogi/anomaly-detection/broker"
	"github.com/adamdorogi/anomaly-detection/schema"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"time"
)

const recentKeep = 999

type DecisionStore struct {
	client *redis.Client
}

func NewDecisionStore(addr, password string, db int) *DecisionStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &DecisionStore{client: client}
}

func (s *DecisionStore) Check(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *DecisionStore) Stop() error {
	return s.client.Close()
}

// Save overwrites the latest decision for the series and prepends it to
// the bounded recent list.
func (s *DecisionStore) Save(ctx context.Context, d schema.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "marshal decision")
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, "decisions:latest:"+d.Series, payload, time.Hour)
	pipe.LPush(ctx, "decisions:recent:"+d.Series, payload)
	pipe.LTrim(ctx, "decisions:recent:"+d.Series, 0, recentKeep)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "redis exec")
	}
	return nil
}

// FetchLatest returns the most recent decision stored for the series,
// or nil when there is none.
func (s *DecisionStore) FetchLatest(ctx context.Context, series string) (*schema.Decision, error) {
	data, err := s.client.Get(ctx, "decisions:latest:"+series).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.Wrap(err, "redis get")
	}

	var d schema.Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(err, "unmarshal decision")
	}
	return &d, nil
}

// PublishDecisions copies every decision seen on the broker into the
// store until ctx is canceled.
func PublishDecisions(
	ctx context.Context,
	br *broker.Broker,
	store *DecisionStore,
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
				if err := store.Save(ctx, m); err != nil {
					errCh <- errors.Wrap(err, "save decision")
					return
				}
			}
		}
	}
}
