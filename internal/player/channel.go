package player

import (
	"github.com/kunquat/kqtcore/internal/events"
	"github.com/kunquat/kqtcore/internal/voice"
)

// stereoGroup is a note's pair of voice-pool groups — one for the left
// mono graph, one for the right — kept in lockstep so both sides render
// the same envelope/phase progression and differ only in the per-channel
// pan gain baked into each Oscillator/Percussion/Debug processor
// instance. See DESIGN.md "Stereo rendering" for why work buffers stay
// single-channel instead of interleaved.
type stereoGroup struct {
	L, R voice.Group
}

// channelRuntime is the per-channel dispatcher state spec.md §4.2
// describes: active-name slots, the conditional-execution stack, and the
// channel-scoped parameters (force, panning, arpeggio/vibrato/tremolo,
// control variables) that channel and audio-unit events mutate.
//
// The carry/sticky fields are a supplemented feature grounded on the
// teacher's internal/model.Model.lastPlaybackNote/lastPlaybackDT sticky-
// value pattern: with carry_on active, a note_on argument equal to
// carryUseLastNote resolves to the channel's last triggered note instead
// of being taken literally.
type channelRuntime struct {
	audioUnitIndex int

	group    *stereoGroup
	hasGroup bool

	force   ramp // current note force; set_force/slide_force/slide_force_length drive it
	pan     float64
	sustain float64
	bypass  bool

	cond  events.CondStack
	names events.ActiveNames

	carry       bool
	lastNote    int
	hasLastNote bool

	arpOn    bool
	arpNotes []int
	arpSpeed float64

	vibSpeed, vibDepth float64
	tremSpeed, tremDepth float64

	cv       map[string]float64
	cvSlides map[string]*ramp // in-progress slide_cv_value ramps, keyed by control-variable name
}

// carryUseLastNote is the reserved note_on argument that, with carry_on
// active, resolves to the channel's last triggered note rather than being
// taken literally. Real MIDI note numbers are >= 0, so a negative
// sentinel never collides with a legitimate pitch.
const carryUseLastNote = -1

func newChannelRuntime(audioUnitIndex int) *channelRuntime {
	return &channelRuntime{
		audioUnitIndex: audioUnitIndex,
		force:          newRamp(1.0),
		sustain:        1.0,
		arpSpeed:       8.0,
		cv:             make(map[string]float64),
		cvSlides:       make(map[string]*ramp),
	}
}

// cvSlideFor returns the in-progress ramp for a named control variable,
// creating one seeded at the variable's current value if none exists yet.
func (c *channelRuntime) cvSlideFor(name string) *ramp {
	if r, ok := c.cvSlides[name]; ok {
		return r
	}
	r := newRamp(c.cv[name])
	c.cvSlides[name] = &r
	return &r
}

// resolveNote applies carry/sticky and scale-quantization to a raw
// note_on argument.
func (c *channelRuntime) resolveNote(raw int, scaleName string) int {
	note := raw
	if c.carry && raw == carryUseLastNote && c.hasLastNote {
		note = c.lastNote
	}
	if scaleName != "" {
		note = quantizeToScale(note, scaleName, 0)
	}
	c.lastNote = note
	c.hasLastNote = true
	return note
}
