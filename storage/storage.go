package storage

import (
	"github.com/adamdorogi/anomaly-detection/schema"
	"time"
)

// Backend records raw series samples and serves them back in timestamp
// order. Implementations must be safe for concurrent use; the detector
// reads history through LoadSamplesBetween while producers insert.
type Backend interface {
	// LoadSamplesBetween returns the samples of a series with
	// start <= timestamp <= end, oldest first.
	LoadSamplesBetween(
		series string,
		start time.Time,
		end time.Time,
	) ([]schema.Sample, error)

	CreateSeries(
		seriesNames []string,
	) error

	InsertSample(
		series string,
		timestamp time.Time,
		value float64,
	) error
}
