package database

import (
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
	"time"
)

// Reopening an existing file runs AutoMigrate again; stored rows must
// survive the second pass.
func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	errCh := make(chan error, 10)
	db, err := Get(path)
	require.NoError(t, err)
	go db.RunWriter(errCh)

	ts := time.Now()
	require.NoError(t, db.InsertSample("energy", ts, 123.5))
	require.NoError(t, db.Flush())

	reopened, err := Get(path)
	require.NoError(t, err)

	samples, err := reopened.LoadSamplesBetween("energy", ts.Add(-time.Minute), ts.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, 123.5, samples[0].Value)
	require.Equal(t, ts.UnixMilli(), samples[0].Timestamp.UnixMilli())

	names, err := reopened.AllSeriesNames()
	require.NoError(t, err)
	require.Equal(t, []string{"energy"}, names)
}
