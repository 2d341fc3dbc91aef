package player

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kunquat/kqtcore/internal/tstamp"
)

func TestTempoSetImmediateCancelsSlide(t *testing.T) {
	ts := newTempoState(120)
	ts.SetLength(tstamp.FromBeats(4))
	ts.SlideTo(140)
	ts.Advance(tstamp.FromBeats(1))
	assert.NotEqual(t, 120.0, ts.Current)

	ts.SetImmediate(90)
	assert.Equal(t, 90.0, ts.Current)
	assert.True(t, ts.Length.IsZero())
}

func TestTempoSlideWithZeroLengthIsImmediate(t *testing.T) {
	ts := newTempoState(100)
	ts.SlideTo(200)
	assert.Equal(t, 200.0, ts.Current)
}

func TestTempoSlideInterpolatesLinearly(t *testing.T) {
	ts := newTempoState(100)
	ts.SetLength(tstamp.FromBeats(4))
	ts.SlideTo(200)

	ts.Advance(tstamp.FromBeats(1))
	assert.InDelta(t, 125.0, ts.Current, 1e-9)

	ts.Advance(tstamp.FromBeats(1))
	assert.InDelta(t, 150.0, ts.Current, 1e-9)

	ts.Advance(tstamp.FromBeats(2))
	assert.InDelta(t, 200.0, ts.Current, 1e-9)
	assert.True(t, ts.Length.IsZero(), "slide must clear its length once complete")
}

func TestTempoAdvanceNoopWhenNotSliding(t *testing.T) {
	ts := newTempoState(120)
	ts.Advance(tstamp.FromBeats(10))
	assert.Equal(t, 120.0, ts.Current)
}

func TestTempoFramesForSpanIntegratesSlideInsteadOfSnapshottingStartBPM(t *testing.T) {
	ts := newTempoState(60)
	ts.SetLength(tstamp.FromBeats(2))
	ts.SlideTo(120)

	frames := ts.FramesForSpan(tstamp.FromBeats(2), 48000)

	// A snapshot of the starting bpm (60) over the whole 2-beat span would
	// give 96000 frames; since bpm rises to 120 partway through, the span
	// must take less wall-clock time than that.
	assert.Less(t, frames, int64(96000))
	// Exact closed form: integral of 60/bpm(beat) for an affine ramp from
	// 60 to 120 bpm over 2 beats is 2*ln(2) seconds.
	assert.InDelta(t, 66542, frames, 1)
}

func TestTempoFramesForSpanMatchesConstantTempoWhenNotSliding(t *testing.T) {
	ts := newTempoState(60)
	frames := ts.FramesForSpan(tstamp.FromBeats(2), 48000)
	assert.Equal(t, int64(96000), frames)
}

func TestTempoTstampForFramesInvertsFramesForSpan(t *testing.T) {
	ts := newTempoState(60)
	ts.SetLength(tstamp.FromBeats(2))
	ts.SlideTo(120)

	frames := ts.FramesForSpan(tstamp.FromBeats(2), 48000)
	recovered := ts.TstampForFrames(frames, 48000)
	assert.InDelta(t, 2.0, recovered.ToFloatBeats(), 1e-3)
}
