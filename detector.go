// Package anomaly wires a rolling z-score engine to sample storage, a
// live feed, and the consumers of its decisions.
package anomaly

import (
	"context"
	"github.com/adamdorogi/anomaly-detection/broker"
	"github.com/adamdorogi/anomaly-detection/schema"
	"github.com/adamdorogi/anomaly-detection/storage"
	"github.com/adamdorogi/anomaly-detection/zscore"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"math"
	"time"
)

type Config struct {
	Series    string        // series the detector watches
	Window    int           // zero means the zscore default
	Threshold float64       // zero means the zscore default
	Increment time.Duration // zero means the zscore default
}

type Detector struct {
	cfg    Config
	db     storage.Backend
	errCh  chan error
	logger *zap.Logger

	broker *broker.Broker
	server *gin.Engine

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds the engine, primes it from stored history, and starts the
// broker, detector loop and metrics publisher. Configuration problems
// and history lookup failures surface here, before any live data is
// consumed.
func New(
	ctx context.Context,
	db storage.Backend,
	errCh chan error,
	cfg Config,
	logger *zap.Logger,
) (*Detector, error) {
	if cfg.Series == "" {
		return nil, errors.New("series name required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	engine, err := zscore.New(zscore.Config{
		Window:    cfg.Window,
		Threshold: cfg.Threshold,
		Increment: cfg.Increment,
		Logger:    logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new engine")
	}

	if err := db.CreateSeries([]string{cfg.Series}); err != nil {
		return nil, errors.Wrap(err, "create series")
	}

	err = engine.Bootstrap(func(start, end time.Time) ([]schema.Sample, error) {
		return db.LoadSamplesBetween(cfg.Series, start, end)
	}, time.Now())
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap")
	}

	ctx, cancel := context.WithCancel(ctx)
	d := &Detector{
		cfg:    cfg,
		db:     db,
		errCh:  errCh,
		logger: logger,
		broker: broker.NewBroker(),
		server: gin.Default(),
		ctx:    ctx,
		cancel: cancel,
	}

	d.setupServer()

	go d.broker.Start()
	go d.runDetector(engine)
	go d.publishPrometheusMetrics()

	return d, nil
}

func (d *Detector) Broker() *broker.Broker {
	return d.broker
}

func (d *Detector) Router() *gin.Engine {
	return d.server
}

func (d *Detector) Close() {
	d.cancel()
	d.broker.Stop()
}

// CreateSample records a reading and feeds it to the detector. Values
// that storage refuses (NaN, infinities) are still published so the
// engine observes, logs and discards them like any other bad reading.
func (d *Detector) CreateSample(
	series string,
	timestamp time.Time,
	value float64,
) error {
	if !math.IsNaN(value) && !math.IsInf(value, 0) {
		if err := d.db.InsertSample(series, timestamp, value); err != nil {
			return errors.Wrap(err, "insert sample")
		}
	}

	d.broker.Publish(schema.Sample{
		Series:    series,
		Timestamp: timestamp,
		Value:     value,
	})

	return nil
}

// Subscribe streams decisions to the callback until the callback errors
// or the detector closes.
func (d *Detector) Subscribe(callback func(schema.Decision) error) {
	msgCh := d.broker.Subscribe()
	defer d.broker.Unsubscribe(msgCh)

	for {
		select {
		case <-d.ctx.Done():
			return
		case msg := <-msgCh:
			switch m := msg.(type) {
			case schema.Decision:
				if err := callback(m); err != nil {
					d.logger.Warn("decision subscriber detached", zap.Error(err))
					return
				}
			}
		}
	}
}

// runDetector bridges the broker and the engine: samples of the watched
// series go into the engine's run loop, decisions come back out and are
// republished. The engine owns its window; everything here is plumbing.
func (d *Detector) runDetector(engine *zscore.Engine) {
	msgCh := d.broker.Subscribe()
	defer d.broker.Unsubscribe(msgCh)

	in := make(chan schema.Sample)
	out := make(chan schema.Decision)

	go func() {
		if err := engine.Run(d.ctx, in, out); err != nil {
			d.errCh <- errors.Wrap(err, "run engine")
		}
		close(out)
	}()

	go func() {
		for decision := range out {
			d.broker.Publish(decision)
		}
	}()

	for {
		select {
		case <-d.ctx.Done():
			return
		case msg := <-msgCh:
			switch m := msg.(type) {
			case schema.Sample:
				if m.Series != d.cfg.Series {
					continue
				}
				select {
				case in <- m:
				case <-d.ctx.Done():
					return
				}
			}
		}
	}
}
