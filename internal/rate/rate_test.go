package rate

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestTracker(t *testing.T) {
	tests := []struct {
		name    string
		size    uint
		record  []bool
		percent float64
		flagged uint
		count   uint
	}{
		{
			name: "empty", size: 4,
			percent: 0, flagged: 0, count: 0,
		},
		{
			name: "partial fill", size: 4,
			record:  []bool{true, false},
			percent: 50, flagged: 1, count: 2,
		},
		{
			name: "full", size: 4,
			record:  []bool{true, false, true, false},
			percent: 50, flagged: 2, count: 4,
		},
		{
			name: "rollover replaces oldest", size: 3,
			record:  []bool{true, true, true, false},
			percent: 100 * 2.0 / 3.0, flagged: 2, count: 3,
		},
		{
			name: "rollover keeps newer flags", size: 2,
			record:  []bool{false, false, true, true},
			percent: 100, flagged: 2, count: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewTracker(tc.size)
			for _, v := range tc.record {
				tr.Record(v)
			}
			assert.InDelta(t, tc.percent, tr.Percent(), 1e-9)
			assert.Equal(t, tc.flagged, tr.Flagged())
			assert.Equal(t, tc.count, tr.Count())
		})
	}
}
