package database

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"time"
)

func (b *Backend) insertBatch(objects []any) error {
	err := b.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range objects {
			res := tx.Create(row)
			if res.Error != nil {
				return errors.Wrap(res.Error, "create")
			}
		}
		return nil
	})
	return err
}

// RunWriter batches queued samples into one transaction every 100ms.
// It returns after a failed flush, reporting the error on errCh.
func (b *Backend) RunWriter(errCh chan error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var rows []any

	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		err := b.insertBatch(rows)
		rows = nil
		return err
	}

	for {
		select {
		case obj := <-b.objects:
			rows = append(rows, obj)
		case reply := <-b.flushCh:
		drain:
			for {
				select {
				case obj := <-b.objects:
					rows = append(rows, obj)
				default:
					break drain
				}
			}
			reply <- flush()
		case <-ticker.C:
			if err := flush(); err != nil {
				errCh <- errors.Wrap(err, "transaction")
				return
			}
		}
	}
}

// Flush forces queued samples to disk and waits for the result. It
// requires RunWriter to be running.
func (b *Backend) Flush() error {
	reply := make(chan error)
	b.flushCh <- reply
	return <-reply
}
