// Package tstamp implements exact rational musical timestamps.
//
// A Tstamp is (beats, remainder) with remainder in [0, BeatUnit). It
// supports the arithmetic spec.md §3.1 requires: equality, ordering,
// addition, subtraction, and scaling by a floating-point tempo to yield a
// frame count.
package tstamp

import "fmt"

// BeatUnit is the number of remainder subdivisions per beat. Kept a power
// of two so tempo-slide integration (player package) doesn't accumulate
// rounding error across many small steps.
const BeatUnit = 1 << 16

// Tstamp is an exact rational musical timestamp.
type Tstamp struct {
	Beats     int64
	Remainder int32 // always in [0, BeatUnit)
}

// Zero is the origin timestamp.
var Zero = Tstamp{}

// New builds a normalized Tstamp from beats and a remainder that may be
// out of range or negative.
func New(beats int64, remainder int32) Tstamp {
	t := Tstamp{Beats: beats, Remainder: remainder}
	t.normalize()
	return t
}

// FromBeats builds a whole-beat Tstamp.
func FromBeats(beats int64) Tstamp {
	return Tstamp{Beats: beats}
}

func (t *Tstamp) normalize() {
	if t.Remainder >= BeatUnit {
		t.Beats += int64(t.Remainder / BeatUnit)
		t.Remainder %= BeatUnit
	} else if t.Remainder < 0 {
		borrow := (-t.Remainder + BeatUnit - 1) / BeatUnit
		t.Beats -= int64(borrow)
		t.Remainder += borrow * BeatUnit
	}
}

// Add returns t + other.
func (t Tstamp) Add(other Tstamp) Tstamp {
	return New(t.Beats+other.Beats, t.Remainder+other.Remainder)
}

// Sub returns t - other.
func (t Tstamp) Sub(other Tstamp) Tstamp {
	return New(t.Beats-other.Beats, t.Remainder-other.Remainder)
}

// Cmp returns -1, 0, or 1 as t is less than, equal to, or greater than
// other.
func (t Tstamp) Cmp(other Tstamp) int {
	switch {
	case t.Beats < other.Beats:
		return -1
	case t.Beats > other.Beats:
		return 1
	case t.Remainder < other.Remainder:
		return -1
	case t.Remainder > other.Remainder:
		return 1
	default:
		return 0
	}
}

// Less reports whether t < other.
func (t Tstamp) Less(other Tstamp) bool { return t.Cmp(other) < 0 }

// LessEqual reports whether t <= other.
func (t Tstamp) LessEqual(other Tstamp) bool { return t.Cmp(other) <= 0 }

// IsZero reports whether t is the origin timestamp.
func (t Tstamp) IsZero() bool { return t.Beats == 0 && t.Remainder == 0 }

// ToFloatBeats converts t to a floating-point beat count. Used only at
// tempo-conversion boundaries, never in the hot render loop's comparisons.
func (t Tstamp) ToFloatBeats() float64 {
	return float64(t.Beats) + float64(t.Remainder)/float64(BeatUnit)
}

// FramesAt converts t to an integral frame count at the given tempo (beats
// per minute) and audio rate (frames per second). Truncates toward zero;
// the fractional frame is discarded, not carried to the next call.
func (t Tstamp) FramesAt(bpm float64, audioRate int) int64 {
	if bpm <= 0 {
		return 0
	}
	seconds := t.ToFloatBeats() * 60.0 / bpm
	return int64(seconds * float64(audioRate))
}

func (t Tstamp) String() string {
	return fmt.Sprintf("%d+%d/%d", t.Beats, t.Remainder, BeatUnit)
}
