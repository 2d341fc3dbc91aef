package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoteFrequencyA4(t *testing.T) {
	assert.InDelta(t, 440.0, NoteFrequency(69), 0.001)
}

func TestTriggerSetsFrequencyAndStartsAttack(t *testing.T) {
	var s State
	s.Trigger(69, 1.0, 10, 10, 0, 0.5, 48000)
	assert.Equal(t, EnvAttack, s.Env)
	assert.InDelta(t, 440.0, s.Freq, 0.001)
	assert.False(t, s.Finished)
}

func TestEnvelopeAdvancesThroughStages(t *testing.T) {
	var s State
	s.Trigger(69, 1.0, 2, 2, 0, 0.5, 48000)

	// Attack: 2 samples to reach decay.
	s.AdvanceEnvelope()
	lvl := s.AdvanceEnvelope()
	assert.Equal(t, EnvDecay, s.Env)
	assert.InDelta(t, 1.0, lvl, 1e-9)

	// Decay: 2 samples to reach sustain.
	s.AdvanceEnvelope()
	s.AdvanceEnvelope()
	assert.Equal(t, EnvSustain, s.Env)
	assert.InDelta(t, 0.5, s.EnvLevel, 1e-9)
}

func TestReleaseIsIdempotent(t *testing.T) {
	var s State
	s.Trigger(69, 1.0, 0, 0, 0, 0.5, 48000)
	s.AdvanceEnvelope() // -> sustain immediately (attack=decay=0)
	s.Release()
	pos := s.EnvPos
	s.Release()
	assert.Equal(t, pos, s.EnvPos, "second Release() must be a no-op")
}

func TestReleaseToIdleMarksFinished(t *testing.T) {
	var s State
	s.Trigger(69, 1.0, 0, 0, 0, 0.0, 48000)
	s.AdvanceEnvelope() // decay=0, sustain=0 -> goes straight to release
	assert.Equal(t, EnvRelease, s.Env)
	for i := 0; i < 5 && !s.Finished; i++ {
		s.AdvanceEnvelope()
	}
	assert.True(t, s.Finished)
	assert.Equal(t, EnvIdle, s.Env)
}

func TestResetClearsState(t *testing.T) {
	var s State
	s.Trigger(69, 1.0, 10, 10, 0, 0.5, 48000)
	s.Reset()
	assert.Equal(t, EnvIdle, s.Env)
	assert.Equal(t, 0, s.Note)
}
