// Package zscore flags outliers in a live series by comparing each value
// against the rolling mean and sample standard deviation of a fixed-size
// window of the most recent values.
package zscore

import (
	"context"
	"github.com/adamdorogi/anomaly-detection/schema"
	"github.com/gammazero/deque"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"math"
	"time"
)

const (
	DefaultWindow    = 45
	DefaultThreshold = 2.25
	DefaultIncrement = 24 * time.Hour
)

var (
	ErrWindow    = errors.New("rolling window must be greater than 1")
	ErrIncrement = errors.New("increment must be positive")
)

type Config struct {
	Window int // number of values the statistics cover

	// Threshold is the z-score magnitude beyond which a value is an
	// outlier. Zero selects DefaultThreshold; negative values are kept
	// as configured and flag every value with measurable spread.
	Threshold float64

	Increment time.Duration // spacing between consecutive samples
	Logger    *zap.Logger
}

// Engine holds the rolling window of one series. It is not safe for
// concurrent use; Run owns it for the lifetime of the stream.
type Engine struct {
	window    int
	threshold float64
	increment time.Duration
	logger    *zap.Logger

	values     *deque.Deque[float64]
	sum        float64
	squaredSum float64
}

func New(cfg Config) (*Engine, error) {
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Increment == 0 {
		cfg.Increment = DefaultIncrement
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if cfg.Window <= 1 {
		return nil, ErrWindow
	}
	if cfg.Increment <= 0 {
		return nil, ErrIncrement
	}
	if cfg.Threshold < 0 {
		cfg.Logger.Warn("negative threshold flags every accepted value as an outlier",
			zap.Float64("threshold", cfg.Threshold))
	}

	return &Engine{
		window:    cfg.Window,
		threshold: cfg.Threshold,
		increment: cfg.Increment,
		logger:    cfg.Logger,
		values:    deque.New[float64](0, 64),
	}, nil
}

// ProcessSample runs one sample through the window: admit, compute the
// rolling statistics including the new value, decide, then evict the
// oldest value. ok is false when the sample failed validation, in which
// case the window is untouched and no decision is produced.
func (e *Engine) ProcessSample(s schema.Sample) (schema.Decision, bool) {
	if !e.validate(s) {
		return schema.Decision{}, false
	}

	e.push(s.Value)

	n := float64(e.window)
	mean := e.sum / n
	variance := (n*mean*mean - 2*mean*e.sum + e.squaredSum) / (n - 1)
	if variance < 0 {
		// float cancellation on near-identical values
		variance = 0
	}
	stddev := math.Sqrt(variance)

	z := 0.0
	if stddev > 0 {
		z = (s.Value - mean) / stddev
	}

	d := schema.Decision{
		Series:    s.Series,
		Timestamp: s.Timestamp,
		Value:     s.Value,
		Mean:      mean,
		StdDev:    stddev,
		ZScore:    z,
		Outlier:   stddev > 0 && math.Abs(z) > e.threshold,
	}

	e.evict()
	return d, true
}

// Run consumes samples until in closes or ctx is canceled, sending one
// decision per accepted sample, in arrival order. Discarded samples
// produce nothing.
func (e *Engine) Run(ctx context.Context, in <-chan schema.Sample, out chan<- schema.Decision) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-in:
			if !ok {
				return nil
			}
			d, ok := e.ProcessSample(s)
			if !ok {
				continue
			}
			select {
			case out <- d:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Len reports how many values the window currently holds.
func (e *Engine) Len() int {
	return e.values.Len()
}

func (e *Engine) validate(s schema.Sample) bool {
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) || s.Value < 0 {
		e.logger.Warn("invalid value received, discarding",
			zap.String("series", s.Series),
			zap.Time("timestamp", s.Timestamp),
			zap.Float64("value", s.Value))
		return false
	}
	return true
}

func (e *Engine) push(v float64) {
	e.values.PushBack(v)
	e.sum += v
	e.squaredSum += v * v
}

func (e *Engine) evict() {
	old := e.values.PopFront()
	e.sum -= old
	e.squaredSum -= old * old
}
