package tstamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNormalizesOverflow(t *testing.T) {
	ts := New(1, BeatUnit+10)
	assert.Equal(t, int64(2), ts.Beats)
	assert.Equal(t, int32(10), ts.Remainder)
}

func TestNewNormalizesNegativeRemainder(t *testing.T) {
	ts := New(2, -5)
	assert.Equal(t, int64(1), ts.Beats)
	assert.Equal(t, int32(BeatUnit-5), ts.Remainder)
}

func TestAddSub(t *testing.T) {
	a := New(1, 100)
	b := New(0, BeatUnit-50)

	sum := a.Add(b)
	assert.Equal(t, int64(2), sum.Beats)
	assert.Equal(t, int32(50), sum.Remainder)

	diff := sum.Sub(b)
	assert.Equal(t, a, diff)
}

func TestCmp(t *testing.T) {
	a := New(1, 0)
	b := New(1, 1)
	c := New(2, 0)

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.Equal(t, 0, a.Cmp(New(1, 0)))
}

func TestIsZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.True(t, New(0, 0).IsZero())
	assert.False(t, New(0, 1).IsZero())
}

func TestFramesAt(t *testing.T) {
	// 2 beats at a constant 90 BPM: seconds = 2 * 60/90 = 1.333..., frames
	// = seconds * 48000 = 64000.
	ts := FromBeats(2)
	frames := ts.FramesAt(90, 48000)
	assert.Equal(t, int64(64000), frames)
}

func TestFramesAtZeroBPM(t *testing.T) {
	ts := FromBeats(1)
	assert.Equal(t, int64(0), ts.FramesAt(0, 48000))
}
