// Package voice implements voice state and the voice pool / voice-group
// allocator from spec.md §4.3.
//
// The voice-state shape is grounded on lixenwraith/vi-fighter's
// Voice/VoiceParams/ADSRState split (other_examples), generalized from a
// closed instrument switch to the spec's processor-driven render_voice
// contract: rather than a per-processor state type, State is a single
// flat struct that every processor kind reads and writes the fields it
// needs from; the graph package calls processors through its
// VoiceProcessor/MixedProcessor interfaces.
package voice

import "math"

// EnvStage is the ADSR envelope phase, carried over from
// lixenwraith/vi-fighter's ADSRState enum.
type EnvStage int

const (
	EnvIdle EnvStage = iota
	EnvAttack
	EnvDecay
	EnvSustain
	EnvRelease
)

// State is the per-voice scratch state a processor's render_voice call
// reads and mutates. One State lives in each pool Slot.
type State struct {
	Note     int
	Freq     float64
	Velocity float64

	Phase    float64 // primary oscillator phase, 0..1
	ModPhase float64 // secondary oscillator phase (FM/detune), 0..1

	FilterState float64

	Env      EnvStage
	EnvLevel float64
	EnvPos   int // samples into the current envelope stage

	Attack  int // samples
	Decay   int // samples
	Sustain float64
	Release int // samples

	Pan   float64 // -1.0 (left) .. +1.0 (right)
	Force float64 // linear gain multiplier from set_force/slide_force

	// Arpeggio/tremolo/vibrato scratch (spec.md §4.2 channel events).
	ArpOn      bool
	ArpStep    int
	ArpNotes   []int
	ArpSpeed   float64 // steps per second; 0 disables cycling even if ArpNotes is set
	arpElapsed int      // samples since the last arpeggio step advance
	VibDepth   float64
	VibSpeed   float64
	VibDelay   int
	TremDepth  float64
	TremSpeed  float64
	TremDelay  int
	ElapsedTicks int // frames elapsed since Trigger, used by arpeggio/vibrato/tremolo LFOs

	// Finished is set by a processor's render_voice call when its tail
	// has fully decayed (spec.md §4.4 "Voice finalization").
	Finished bool

	// DebugCyclePos/DebugCycleCount back the spec.md §8 scenario 2 debug
	// processor: a one-sample pulse followed by silence, repeated for a
	// bounded number of cycles.
	DebugCyclePos   int
	DebugCycleCount int
}

// Reset clears a State back to its zero value for reuse by a new voice
// group, mirroring vi-fighter's Voice.Reset contract.
func (s *State) Reset() {
	*s = State{}
}

// Trigger starts a new note on an already-allocated state, assigning the
// per-kind ADSR envelope timings the way
// lixenwraith/vi-fighter.TonalVoice.Trigger switches on instrument type.
func (s *State) Trigger(note int, velocity float64, attack, decay, release int, sustain float64, audioRate int) {
	s.Note = note
	s.Freq = NoteFrequency(note)
	s.Velocity = velocity
	s.Phase = 0
	s.ModPhase = 0
	s.FilterState = 0
	s.Attack = attack
	s.Decay = decay
	s.Sustain = sustain
	s.Release = release
	s.Env = EnvAttack
	s.EnvPos = 0
	s.EnvLevel = 0
	s.Finished = false
	_ = audioRate
}

// AdvanceArp steps the arpeggio cycle forward by one sample, advancing
// ArpStep once per 1/ArpSpeed seconds. A zero or negative ArpSpeed
// disables cycling (the voice sticks on ArpNotes[0]).
func (s *State) AdvanceArp(sampleRate int) {
	if len(s.ArpNotes) == 0 || s.ArpSpeed <= 0 {
		return
	}
	stepFrames := int(float64(sampleRate) / s.ArpSpeed)
	if stepFrames <= 0 {
		stepFrames = 1
	}
	s.arpElapsed++
	if s.arpElapsed >= stepFrames {
		s.arpElapsed = 0
		s.ArpStep++
	}
}

// Release begins the release stage (note_off), matching
// lixenwraith/vi-fighter.TonalVoice.Release's idempotence guard.
func (s *State) Release() {
	if s.Env == EnvIdle || s.Env == EnvRelease {
		return
	}
	s.Env = EnvRelease
	s.EnvPos = 0
}

// AdvanceEnvelope steps the ADSR envelope by one sample and returns the
// current envelope level, the same per-sample state machine as
// lixenwraith/vi-fighter.TonalVoice.processEnvelope.
func (s *State) AdvanceEnvelope() float64 {
	switch s.Env {
	case EnvAttack:
		s.EnvPos++
		if s.Attack > 0 {
			s.EnvLevel = float64(s.EnvPos) / float64(s.Attack)
		} else {
			s.EnvLevel = 1.0
		}
		if s.EnvPos < s.Attack {
			break
		}
		s.Env = EnvDecay
		s.EnvPos = 0
		if s.Decay > 0 {
			break
		}
		fallthrough
	case EnvDecay:
		s.EnvPos++
		if s.Decay > 0 {
			t := float64(s.EnvPos) / float64(s.Decay)
			s.EnvLevel = 1.0 - t*(1.0-s.Sustain)
		} else {
			s.EnvLevel = s.Sustain
		}
		if s.EnvPos >= s.Decay {
			if s.Sustain > 0 {
				s.Env = EnvSustain
			} else {
				s.Env = EnvRelease
				s.EnvPos = 0
			}
		}
	case EnvSustain:
		s.EnvLevel = s.Sustain
	case EnvRelease:
		if s.Release > 0 {
			t := float64(s.EnvPos) / float64(s.Release)
			s.EnvLevel = s.Sustain * (1.0 - t)
		} else {
			s.EnvLevel = 0
		}
		s.EnvPos++
		if s.EnvPos >= s.Release || s.EnvLevel <= 0.001 {
			s.Env = EnvIdle
			s.EnvLevel = 0
			s.Finished = true
		}
	}
	return s.EnvLevel
}

// NoteFrequency converts a MIDI note number to Hz (A4=69=440Hz), the
// standard 12-tone equal temperament conversion vi-fighter's NoteFreq
// performs.
func NoteFrequency(note int) float64 {
	return 440.0 * math.Pow(2.0, float64(note-69)/12.0)
}
