package player

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kunquat/kqtcore/internal/tstamp"
)

func TestSequencerSetPlaybackStateResetsCursors(t *testing.T) {
	s := newSequencer(120)
	s.cgiters[3] = 5
	s.patternDelay = tstamp.FromBeats(2)
	s.pendingGoto = &gotoTarget{Track: 1}

	s.SetPlaybackState(PlayingSong, Position{Track: 2, System: 1})

	assert.Equal(t, PlayingSong, s.State())
	assert.Equal(t, 2, s.Pos().Track)
	assert.Equal(t, 0, s.cgiters[3])
	assert.True(t, s.patternDelay.IsZero())
	assert.Nil(t, s.pendingGoto)
}

func TestSequencerPauseResume(t *testing.T) {
	s := newSequencer(120)
	assert.False(t, s.paused)
	s.Pause()
	assert.True(t, s.paused)
	s.Resume()
	assert.False(t, s.paused)
}

func TestSequencerRequestGotoSetsPendingTarget(t *testing.T) {
	s := newSequencer(120)
	s.RequestGoto(1, 2, tstamp.FromBeats(4))
	assert.NotNil(t, s.pendingGoto)
	assert.Equal(t, 1, s.pendingGoto.Track)
	assert.Equal(t, 2, s.pendingGoto.System)
}
