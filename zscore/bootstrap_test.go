package zscore

import (
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math"
	"testing"
	"time"
)

func TestBootstrapRange(t *testing.T) {
	e, err := New(Config{Window: 45, Increment: time.Hour})
	require.NoError(t, err)

	src := &fixedLookup{samples: alternatingHistory(44, 9.5, 10.5)}
	require.NoError(t, e.Bootstrap(src.lookup, testBase))

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, testBase, src.end)
	assert.Equal(t, testBase.Add(-44*time.Hour), src.start)
	assert.Equal(t, 44, e.Len())
	assert.Equal(t, 440.0, e.sum)
	assert.Equal(t, 4411.0, e.squaredSum)
}

func TestBootstrapSkipsInvalidHistory(t *testing.T) {
	history := alternatingHistory(10, 4, 6)
	history[2].Value = math.NaN()
	history[5].Value = -12
	history[8].Value = math.Inf(1)

	e, err := New(Config{Window: 11, Increment: time.Hour})
	require.NoError(t, err)

	src := &fixedLookup{samples: history}
	require.NoError(t, e.Bootstrap(src.lookup, testBase))

	// the window stays short; later statistics still divide by the
	// configured window size
	assert.Equal(t, 7, e.Len())
	assert.Equal(t, 36.0, e.sum)

	d, ok := e.ProcessSample(testSample(0, 5))
	require.True(t, ok)
	assert.InDelta(t, 41.0/11.0, d.Mean, 1e-9)
}

func TestBootstrapOverfullHistory(t *testing.T) {
	// a store written by overlapping runs can return far more than
	// window-1 samples for the bootstrap range; only the newest window-1
	// may survive, or the fixed-window variance collapses to zero and
	// detection silently stops
	history := append(alternatingHistory(44, 9.5, 10.5), alternatingHistory(44, 9.5, 10.5)...)

	e, err := New(Config{Window: 45, Threshold: 2.25, Increment: time.Hour})
	require.NoError(t, err)

	src := &fixedLookup{samples: history}
	require.NoError(t, e.Bootstrap(src.lookup, testBase))

	assert.Equal(t, 44, e.Len())
	assert.Equal(t, 440.0, e.sum)
	assert.Equal(t, 4411.0, e.squaredSum)

	d, ok := e.ProcessSample(testSample(0, 100))
	require.True(t, ok)
	assert.Greater(t, d.StdDev, 0.0)
	assert.InDelta(t, 6.5546, d.ZScore, 0.001)
	assert.True(t, d.Outlier)
}

func TestBootstrapLookupError(t *testing.T) {
	errBoom := errors.New("boom")

	e, err := New(Config{Window: 45, Increment: time.Hour})
	require.NoError(t, err)

	src := &fixedLookup{err: errBoom}
	err = e.Bootstrap(src.lookup, testBase)
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "load history")
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 0, e.Len())
}

func TestBootstrapEmptyHistory(t *testing.T) {
	e, err := New(Config{Window: 4, Increment: time.Hour})
	require.NoError(t, err)

	src := &fixedLookup{}
	require.NoError(t, e.Bootstrap(src.lookup, testBase))
	require.Equal(t, 0, e.Len())

	// the engine still runs; every push is immediately evicted again
	d, ok := e.ProcessSample(testSample(0, 8))
	require.True(t, ok)
	assert.Equal(t, 0, e.Len())
	assert.InDelta(t, 2.0, d.Mean, 1e-9)
}
