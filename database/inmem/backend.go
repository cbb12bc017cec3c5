// Package inmem keeps samples in memory, for tests and short-lived
// demos.
package inmem

import (
	"github.com/adamdorogi/anomaly-detection/schema"
	"sort"
	"sync"
	"time"
)

type Backend struct {
	lock    sync.Mutex
	samples map[string][]schema.Sample
}

func NewBackend() *Backend {
	return &Backend{
		samples: map[string][]schema.Sample{},
	}
}

func (b *Backend) LoadSamplesBetween(
	series string,
	start time.Time,
	end time.Time,
) ([]schema.Sample, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	var result []schema.Sample
	for _, s := range b.samples[series] {
		if s.Timestamp.Before(start) || s.Timestamp.After(end) {
			continue
		}
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

func (b *Backend) CreateSeries(seriesNames []string) error {
	return nil
}

func (b *Backend) InsertSample(
	series string,
	timestamp time.Time,
	value float64,
) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.samples[series] = append(b.samples[series], schema.Sample{
		Series:    series,
		Timestamp: timestamp,
		Value:     value,
	})
	return nil
}
