package database

import (
	"github.com/adamdorogi/anomaly-detection/schema"
	"github.com/chrispappas/golang-generics-set/set"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"math"
	"sync"
	"time"
)

type Backend struct {
	db *gorm.DB

	objects chan any
	flushCh chan chan error

	seenMu sync.Mutex
	seen   set.Set[string]
}

func (b *Backend) GetORM() *gorm.DB {
	return b.db
}

func (b *Backend) AllSeriesNames() ([]string, error) {
	var result []string
	tx := b.db.Model(&Series{}).Distinct("name").Pluck("name", &result)
	if tx.Error != nil {
		return nil, errors.Wrap(tx.Error, "get distinct series names")
	}
	return result, nil
}

// LoadSamplesBetween returns the stored samples of a series with
// start <= timestamp <= end, oldest first.
func (b *Backend) LoadSamplesBetween(
	series string,
	start time.Time,
	end time.Time,
) ([]schema.Sample, error) {
	var rows []Sample

	tx := b.db.Where(
		"series_id = ? and timestamp >= ? and timestamp <= ?",
		HashedID(series),
		start.UnixMilli(),
		end.UnixMilli(),
	).Order("timestamp asc").Find(&rows)

	if tx.Error != nil {
		return nil, errors.Wrap(tx.Error, "find")
	}

	result := make([]schema.Sample, len(rows))
	for idx, row := range rows {
		result[idx] = schema.Sample{
			Series:    series,
			Timestamp: time.UnixMilli(row.Timestamp),
			Value:     row.Value,
		}
	}

	return result, nil
}

func (b *Backend) CreateSeries(
	seriesNames []string,
) error {
	seriesMap, err := loadSeries(b.db)
	if err != nil {
		return errors.Wrap(err, "initial load")
	}

	for _, name := range seriesNames {
		if _, found := seriesMap[name]; found {
			continue
		}
		tx := b.db.Create(&Series{
			ID:   HashedID(name),
			Name: name,
			Unit: "",
		})
		if tx.Error != nil {
			return errors.Wrap(tx.Error, "create series")
		}
	}

	return nil
}

// InsertSample queues one reading for the background writer. Negative
// values are stored as-is (a bad reading is still a reading); NaN and
// infinities are refused because they do not round-trip through sqlite.
func (b *Backend) InsertSample(
	series string,
	timestamp time.Time,
	value float64,
) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.New("refusing to store non-finite value")
	}

	b.seenMu.Lock()
	if !b.seen.Has(series) {
		if err := b.CreateSeries([]string{series}); err != nil {
			b.seenMu.Unlock()
			return errors.Wrap(err, "create series")
		}
		b.seen.Add(series)
	}
	b.seenMu.Unlock()

	b.objects <- &Sample{
		ID:        RandomID(),
		SeriesID:  HashedID(series),
		Timestamp: timestamp.UnixMilli(),
		Value:     value,
	}
	return nil
}
