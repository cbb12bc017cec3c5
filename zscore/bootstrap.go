package zscore

import (
	"github.com/adamdorogi/anomaly-detection/schema"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"time"
)

// HistoryFunc returns the samples of a series recorded between start and
// end inclusive, oldest first.
type HistoryFunc func(start, end time.Time) ([]schema.Sample, error)

// Bootstrap primes the window from history so that the first live sample
// completes a full window. It issues a single lookup covering the
// window-1 increments before now and folds every valid sample into the
// window; invalid historical samples are logged and skipped, leaving the
// window short. When history holds more than window-1 valid samples,
// only the newest window-1 are kept, so the window can never start
// over-full. Lookup failures are returned to the caller untouched
// beyond wrapping.
func (e *Engine) Bootstrap(lookup HistoryFunc, now time.Time) error {
	start := now.Add(-time.Duration(e.window-1) * e.increment)

	samples, err := lookup(start, now)
	if err != nil {
		return errors.Wrap(err, "load history")
	}

	keep := e.window - 1
	dropped := 0
	for _, s := range samples {
		if !e.validate(s) {
			continue
		}
		e.push(s.Value)
		if e.values.Len() > keep {
			e.evict()
			dropped++
		}
	}
	if dropped > 0 {
		e.logger.Warn("history over-fills the window, keeping the newest values",
			zap.Int("dropped", dropped),
			zap.Int("kept", keep))
	}

	e.logger.Debug("bootstrapped window",
		zap.Int("samples", e.values.Len()),
		zap.Time("start", start),
		zap.Time("end", now))
	return nil
}
