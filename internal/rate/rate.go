// Package rate tracks how often recent decisions flagged an outlier.
package rate

import "github.com/bits-and-blooms/bitset"

// Tracker is a fixed-size ring remembering the outlier flag of the last
// size decisions. It is owned by a single goroutine.
type Tracker struct {
	bits      *bitset.BitSet
	size      uint
	nextIndex uint
	occupied  uint
	flagged   uint
}

func NewTracker(size uint) *Tracker {
	return &Tracker{
		bits: bitset.New(size),
		size: size,
	}
}

func (t *Tracker) Record(outlier bool) {
	if t.occupied < t.size {
		t.occupied++
	} else if t.bits.Test(t.nextIndex) {
		// overwriting a slot that held an outlier
		t.flagged--
	}

	t.bits.SetTo(t.nextIndex, outlier)
	if outlier {
		t.flagged++
	}
	t.nextIndex = (t.nextIndex + 1) % t.size
}

// Percent returns the flagged share of recorded decisions in [0, 100],
// or 0 before anything was recorded.
func (t *Tracker) Percent() float64 {
	if t.occupied == 0 {
		return 0
	}
	return float64(t.flagged) / float64(t.occupied) * 100
}

func (t *Tracker) Count() uint {
	return t.occupied
}

func (t *Tracker) Flagged() uint {
	return t.flagged
}
