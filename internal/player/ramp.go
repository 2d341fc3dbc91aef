package player

import "github.com/kunquat/kqtcore/internal/tstamp"

// ramp is a linear slide of a scalar value over musical time: (current,
// target, slide-start value, slide length, slide elapsed). tempoState's
// bpm slide and the per-channel force/control-variable slides
// (slide_force, slide_cv_value) are all instances of this same shape, so
// they share one implementation instead of three copies of the same
// interpolation arithmetic.
type ramp struct {
	Current float64
	Target  float64
	Start   float64 // value at the moment the current slide began
	Length  tstamp.Tstamp
	Elapsed tstamp.Tstamp
}

func newRamp(initial float64) ramp {
	return ramp{Current: initial, Target: initial, Start: initial}
}

// SetImmediate sets the value at once and cancels any in-flight slide.
func (r *ramp) SetImmediate(v float64) {
	r.Current = v
	r.Target = v
	r.Start = v
	r.Length = tstamp.Zero
	r.Elapsed = tstamp.Zero
}

// SlideTo starts (or retargets) a slide toward v over the duration set by
// the most recent SetLength call (or immediately, if none was set).
func (r *ramp) SlideTo(v float64) {
	r.Target = v
	r.Start = r.Current
	r.Elapsed = tstamp.Zero
	if r.Length.IsZero() {
		r.Current = v
		r.Start = v
	}
}

// SetLength sets the duration a subsequent SlideTo will take to complete.
func (r *ramp) SetLength(length tstamp.Tstamp) {
	r.Length = length
	r.Elapsed = tstamp.Zero
	r.Start = r.Current
}

// sliding reports whether a slide is still in progress.
func (r *ramp) sliding() bool {
	return !r.Length.IsZero() && r.Elapsed.Less(r.Length) && r.Current != r.Target
}

// Advance steps the slide forward by dt and linearly interpolates Current
// toward Target in proportion to Elapsed/Length, measured from the
// slide's fixed starting point so repeated small steps accumulate no
// drift.
func (r *ramp) Advance(dt tstamp.Tstamp) {
	if !r.sliding() {
		return
	}
	r.Elapsed = r.Elapsed.Add(dt)
	if r.Elapsed.Cmp(r.Length) >= 0 {
		r.Current = r.Target
		r.Length = tstamp.Zero
		r.Elapsed = tstamp.Zero
		return
	}
	frac := r.Elapsed.ToFloatBeats() / r.Length.ToFloatBeats()
	r.Current = r.Start + frac*(r.Target-r.Start)
}
