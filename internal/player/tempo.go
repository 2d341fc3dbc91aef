package player

import (
	"math"

	"github.com/kunquat/kqtcore/internal/tstamp"
)

// tempoState is the master sequencer's tempo sub-state (spec.md §4.1
// "Tempo state: (current_bpm, target_bpm, slide_length, slide_elapsed)"),
// built on the same linear ramp set_force and set_cv_value slides use.
// What's specific to tempo is the conversion between musical time and
// audio frames below: while sliding, bpm varies continuously across an
// inter-event span, so FramesForSpan/TstampForFrames integrate that
// change analytically instead of snapshotting Current once per span
// (spec.md §4.1 "Tempo slides").
type tempoState struct {
	ramp
}

func newTempoState(initial float64) tempoState {
	return tempoState{ramp: newRamp(initial)}
}

// FramesForSpan returns how many audio frames elapse while the sequencer
// advances through delta beats of musical time at this tempo. While a
// slide is in progress, bpm is affine in elapsed beats (Current = Start +
// (Elapsed/Length)*(Target-Start)), so the wall-clock time for the span is
// the exact integral of 60/bpm(beats) over [elapsed, elapsed+span] rather
// than delta*60/bpm(elapsed) — the latter renders the whole span at the
// bpm the slide had at the span's start and so loses the slide's effect
// on duration.
func (t *tempoState) FramesForSpan(delta tstamp.Tstamp, audioRate int) int64 {
	if !t.sliding() {
		return delta.FramesAt(t.Current, audioRate)
	}

	span := delta.ToFloatBeats()
	if span <= 0 || audioRate <= 0 {
		return 0
	}
	lengthBeats := t.Length.ToFloatBeats()
	elapsedBeats := t.Elapsed.ToFloatBeats()
	remaining := lengthBeats - elapsedBeats
	if span > remaining {
		span = remaining // caller should already stop spans at the slide's end; clamp defensively
	}

	bpmStart := t.Current
	bpmEnd := t.Start + (elapsedBeats+span)/lengthBeats*(t.Target-t.Start)
	if bpmStart <= 0 || bpmEnd <= 0 {
		return 0
	}

	seconds := integrateInverseBPM(bpmStart, bpmEnd, span)
	return int64(seconds * float64(audioRate))
}

// TstampForFrames is FramesForSpan's inverse: it recovers the exact
// musical time consumed by a render step that was cut short by the
// chunk's frame budget before reaching the next event.
func (t *tempoState) TstampForFrames(frames int64, audioRate int) tstamp.Tstamp {
	if frames <= 0 || audioRate <= 0 {
		return tstamp.Zero
	}
	if !t.sliding() {
		return tstampAtConstantTempo(frames, t.Current, audioRate)
	}

	seconds := float64(frames) / float64(audioRate)
	lengthBeats := t.Length.ToFloatBeats()
	elapsedBeats := t.Elapsed.ToFloatBeats()
	remaining := lengthBeats - elapsedBeats
	bpmStart := t.Current
	slope := (t.Target - t.Start) / lengthBeats // d(bpm)/d(beat) across the whole slide

	var beats float64
	if slope == 0 {
		beats = seconds * bpmStart / 60.0
	} else {
		beats = (bpmStart / slope) * (math.Exp(seconds*slope/60.0) - 1)
	}
	if beats > remaining {
		beats = remaining
	}
	return tstampFromBeats(beats)
}

// integrateInverseBPM returns the seconds elapsed over a span of `beats`
// musical beats during which bpm changes affinely from bpmStart to
// bpmEnd: the closed form of integral(60/bpm(s) ds, s=0..beats) for
// bpm(s) = bpmStart + slope*s.
func integrateInverseBPM(bpmStart, bpmEnd, beats float64) float64 {
	if bpmStart == bpmEnd {
		return beats * 60.0 / bpmStart
	}
	slope := (bpmEnd - bpmStart) / beats
	return (60.0 / slope) * math.Log(bpmEnd/bpmStart)
}

// tstampAtConstantTempo converts a frame count to the tstamp it spans at a
// single fixed bpm.
func tstampAtConstantTempo(frames int64, bpm float64, audioRate int) tstamp.Tstamp {
	if bpm <= 0 || audioRate <= 0 || frames <= 0 {
		return tstamp.Zero
	}
	beats := float64(frames) / float64(audioRate) * (bpm / 60.0)
	return tstampFromBeats(beats)
}

func tstampFromBeats(beats float64) tstamp.Tstamp {
	whole := int64(beats)
	rem := int32((beats - float64(whole)) * float64(tstamp.BeatUnit))
	return tstamp.New(whole, rem)
}
