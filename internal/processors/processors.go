// Package processors implements concrete device-graph leaf DSP nodes:
// the debug/pulse processor spec.md §8 scenario 2 requires, a
// band-limited-ish oscillator processor with ADSR envelope and
// arpeggio/vibrato/tremolo modulation, percussion (noise) processors, and
// the mixed volume/filter processors that sit above them in an audio
// unit.
//
// The oscillator and percussion generators are grounded on
// lixenwraith/vi-fighter's TonalVoice/DrumVoice sample generators
// (other_examples), adapted to render sample-by-sample against
// voice.State's shared ADSR machinery instead of vi-fighter's
// per-instrument bespoke envelopes, and adapted to render into a work
// buffer slice per call instead of returning one float64 per call.
package processors

import (
	"math"
	"math/rand"

	"github.com/kunquat/kqtcore/internal/voice"
	"github.com/kunquat/kqtcore/internal/workbuf"
)

// Channel selects which side of an equal-power stereo pair a processor
// instance renders. Each audio unit is wired as two structurally
// identical mono node chains (Left, Right) drawing on the same voice.Pool,
// each side with its own voice group and voice.State triggered with the
// same parameters, so panning is applied per-channel at the oscillator
// itself rather than requiring a second stereo-aware buffer type — see
// DESIGN.md for why work buffers stay single-channel.
type Channel int

const (
	Left Channel = iota
	Right
)

// panGain returns this channel's equal-power gain for a pan value in
// [-1, 1] (-1 = full left, +1 = full right).
func panGain(ch Channel, pan float64) float64 {
	if pan < -1 {
		pan = -1
	} else if pan > 1 {
		pan = 1
	}
	angle := (pan + 1.0) * math.Pi / 4.0
	if ch == Left {
		return math.Cos(angle)
	}
	return math.Sin(angle)
}

// Waveform selects the oscillator's raw signal shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveSquare
	WaveTriangle
)

// Oscillator is a voice-rendering processor: a band-limited-ish periodic
// waveform shaped by voice.State's ADSR envelope, with arpeggio, vibrato
// (pitch LFO), and tremolo (amplitude LFO) layered on top (spec.md §4.2
// channel events).
type Oscillator struct {
	Wave    Waveform
	Channel Channel
}

// RenderVoice implements graph.VoiceProcessor.
func (o Oscillator) RenderVoice(s *voice.State, out *workbuf.Buffer, offset, count, sampleRate int) bool {
	sr := float64(sampleRate)
	for i := offset; i < offset+count; i++ {
		freq := s.Freq
		if len(s.ArpNotes) > 0 {
			freq = voice.NoteFrequency(s.Note + s.ArpNotes[s.ArpStep%len(s.ArpNotes)])
			s.AdvanceArp(sampleRate)
		}
		if s.VibDepth > 0 && s.ElapsedTicks >= s.VibDelay {
			lfo := math.Sin(2 * math.Pi * s.VibSpeed * float64(s.ElapsedTicks-s.VibDelay) / sr)
			freq *= 1.0 + s.VibDepth*lfo*0.05
		}

		raw := o.sample(s.Phase)
		s.Phase += freq / sr
		if s.Phase >= 1.0 {
			s.Phase -= 1.0
		}

		env := s.AdvanceEnvelope()
		amp := env * s.Velocity * s.Force
		if s.TremDepth > 0 && s.ElapsedTicks >= s.TremDelay {
			lfo := math.Sin(2 * math.Pi * s.TremSpeed * float64(s.ElapsedTicks-s.TremDelay) / sr)
			amp *= 1.0 - s.TremDepth*0.5*(1-lfo)
		}

		gain := panGain(o.Channel, s.Pan)
		out.Data[i] += float32(raw * amp * gain)
		s.ElapsedTicks++
	}
	out.IsValid = true
	if s.Env == voice.EnvIdle {
		out.IsFinal = true
		return true
	}
	return false
}

func (o Oscillator) sample(phase float64) float64 {
	switch o.Wave {
	case WaveSaw:
		return 2.0*phase - 1.0
	case WaveSquare:
		if phase < 0.5 {
			return 1.0
		}
		return -1.0
	case WaveTriangle:
		return 2.0*math.Abs(2.0*(phase-math.Floor(phase+0.5))) - 1.0
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// PercussionKind selects which one-shot percussive timbre a Percussion
// processor renders.
type PercussionKind int

const (
	Kick PercussionKind = iota
	Hihat
	Snare
	Clap
)

// Percussion is a voice-rendering processor for one-shot drum sounds,
// grounded on vi-fighter's generateKick/generateHihat/generateSnare/
// generateClap, re-expressed to run sample-by-sample against the shared
// ADSR envelope. Percussion sets no envelope timings of its own: it uses
// whatever attack/decay/sustain/release voice.State.Trigger was given,
// with the decay position also driving the kick's pitch sweep.
type Percussion struct {
	Kind    PercussionKind
	Channel Channel
}

func (p Percussion) RenderVoice(s *voice.State, out *workbuf.Buffer, offset, count, sampleRate int) bool {
	sr := float64(sampleRate)
	for i := offset; i < offset+count; i++ {
		t := 0.0
		if s.Decay > 0 {
			t = float64(s.EnvPos) / float64(s.Decay)
		}

		var raw float64
		switch p.Kind {
		case Kick:
			freq := 40.0 + (150.0-40.0)*math.Exp(-8*t)
			s.Phase += freq / sr
			if s.Phase >= 1 {
				s.Phase -= 1
			}
			raw = math.Tanh(math.Sin(2*math.Pi*s.Phase) * 2.0)
		case Hihat:
			raw = filterHighpass(s, rand.Float64()*2-1, 7000, sr)
		case Snare:
			tone := math.Sin(2 * math.Pi * s.Phase)
			s.Phase += 200.0 / sr
			if s.Phase >= 1 {
				s.Phase -= 1
			}
			raw = tone*0.5 + filterBandpass(s, rand.Float64()*2-1, 2000, sr)*0.5
		default: // Clap
			raw = filterBandpass(s, rand.Float64()*2-1, 1500, sr)
		}

		amp := s.AdvanceEnvelope() * s.Velocity
		gain := panGain(p.Channel, s.Pan)
		out.Data[i] += float32(raw * amp * gain)
	}
	out.IsValid = true
	if s.Env == voice.EnvIdle {
		out.IsFinal = true
		return true
	}
	return false
}

// filterHighpass/filterBandpass are minimal one-pole filters reusing
// State.FilterState/ModPhase as scratch, grounded on vi-fighter's
// filterBiquadHP/filterBiquadBP but collapsed to one-pole for a
// sample-at-a-time render contract (vi-fighter pre-generates a full
// buffer then filters it in one pass; this engine cannot do that since
// triggers may interrupt mid-buffer, spec.md §4.4 "Sample-accurate event
// interleaving").
func filterHighpass(s *voice.State, x, cutoffHz, sr float64) float64 {
	alpha := cutoffHz / (cutoffHz + sr/(2*math.Pi))
	s.FilterState += alpha * (x - s.FilterState)
	return x - s.FilterState
}

func filterBandpass(s *voice.State, x, centerHz, sr float64) float64 {
	alpha := centerHz / (centerHz + sr/(2*math.Pi))
	s.FilterState += alpha * (x - s.FilterState)
	s.ModPhase += alpha * (s.FilterState - s.ModPhase)
	return s.FilterState - s.ModPhase
}

// Debug is the spec.md §8 scenario 2 debug processor: one sample of 1.0
// (scaled by the voice's velocity and this channel's pan gain) followed
// by 0.5 seconds of silence within each phase cycle, lasting up to
// MaxCycles cycles then silence/finished.
type Debug struct {
	Channel   Channel
	MaxCycles int // default 10, per spec.md scenario 2
}

func (d Debug) RenderVoice(s *voice.State, out *workbuf.Buffer, offset, count, sampleRate int) bool {
	maxCycles := d.MaxCycles
	if maxCycles <= 0 {
		maxCycles = 10
	}
	cycleLen := sampleRate/2 + 1 // one sample pulse + 0.5s silence
	gain := panGain(d.Channel, s.Pan)

	for i := offset; i < offset+count; i++ {
		if s.DebugCycleCount >= maxCycles {
			break
		}
		if s.DebugCyclePos == 0 {
			out.Data[i] += float32(1.0 * s.Velocity * gain)
		}
		s.DebugCyclePos++
		if s.DebugCyclePos >= cycleLen {
			s.DebugCyclePos = 0
			s.DebugCycleCount++
		}
	}
	out.IsValid = true
	if s.DebugCycleCount >= maxCycles {
		out.IsFinal = true
		s.Finished = true
		return true
	}
	return false
}
