// Package database persists series samples in sqlite through gorm.
package database

import (
	"crypto/rand"
	"crypto/sha256"
	"github.com/chrispappas/golang-generics-set/set"
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Get opens (or creates) the database at filename and returns a backend
// ready for use. Start RunWriter in a goroutine to enable inserts.
func Get(filename string) (*Backend, error) {
	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	for _, table := range []any{
		&Sample{},
		&Series{},
	} {
		err = db.AutoMigrate(table)
		if err != nil {
			return nil, errors.Wrap(err, "migrate")
		}
	}

	return NewBackend(db, 100), nil
}

func NewBackend(
	db *gorm.DB,
	bufSize int,
) *Backend {
	return &Backend{
		db:      db,
		objects: make(chan any, bufSize),
		flushCh: make(chan chan error),
		seen:    set.FromSlice([]string{}),
	}
}

// RandomID returns a fresh 16-byte row ID.
func RandomID() []byte {
	var result [16]byte
	_, err := rand.Read(result[:])
	if err != nil {
		panic(err)
	}
	return result[:]
}

// HashedID maps a series name to its stable 16-byte series ID.
func HashedID(s string) []byte {
	var result [16]byte
	h := sha256.New()
	h.Write([]byte(s))
	sum := h.Sum(nil)
	copy(result[:], sum[:16])
	return result[:]
}

func loadSeries(db *gorm.DB) (map[string]*Series, error) {
	seriesMap := map[string]*Series{}
	{
		var all []*Series
		tx := db.Find(&all)
		if tx.Error != nil {
			return nil, errors.Wrap(tx.Error, "find")
		}

		for _, s := range all {
			seriesMap[s.Name] = s
		}
	}

	return seriesMap, nil
}
