package player

import (
	"github.com/kunquat/kqtcore/internal/score"
	"github.com/kunquat/kqtcore/internal/tstamp"
)

// PlaybackState is the master sequencer's top-level state machine
// (spec.md §4.1 "Playback state").
type PlaybackState int

const (
	Stopped PlaybackState = iota
	PlayingPattern
	PlayingSong
	PlayingModule
)

// Position is the sequencer's current location (spec.md §4.1 "Current
// position: (track, system, pattern_instance, row_tstamp)"). Track indexes
// Module.Tracks, System indexes the resolved song's Instances slice. When
// DirectPattern is set (play_pattern control event) the sequencer plays
// that single pattern instance directly, ignoring Track/System.
type Position struct {
	Track, System int
	Row           tstamp.Tstamp
	DirectPattern *score.PatternInstanceRef
}

// gotoTarget is a pending goto request, applied at the next chunk
// boundary (spec.md §4.1 "Pending goto").
type gotoTarget struct {
	Track, System int
	Row           tstamp.Tstamp
}

// jumpKey identifies one jump-counter table entry (spec.md §4.1
// "Jump-counter table keyed by (pattern_instance, row, channel,
// trigger_order)"). Track/System stand in for "pattern_instance" here
// since jumps in this implementation target a row within the currently
// playing pattern instance (see DESIGN.md "Jump targeting").
type jumpKey struct {
	Track, System, Channel int
	Row                    tstamp.Tstamp
}

// Sequencer holds the Master Sequencer's state (spec.md §4.1). It never
// touches the device graph or voice pool directly — Player's dispatch
// methods do that — keeping Sequencer responsible only for musical time,
// position, and pending control requests.
type Sequencer struct {
	state PlaybackState
	pos   Position
	paused bool
	infinite bool

	cgiters [score.KQTChannelsMax]int

	tempo        tempoState
	patternDelay tstamp.Tstamp

	jumpCounters      map[jumpKey]int
	jumpTargetRow     tstamp.Tstamp
	jumpTargetPattern *score.PatternInstanceRef
	jumpCounterSeed   int

	pendingGoto *gotoTarget
}

func newSequencer(initialBPM float64) *Sequencer {
	return &Sequencer{
		state:        Stopped,
		tempo:        newTempoState(initialBPM),
		jumpCounters: make(map[jumpKey]int),
	}
}

// SetPlaybackState implements spec.md §4.1's public operation: resets all
// per-channel state and seeks to start.
func (s *Sequencer) SetPlaybackState(state PlaybackState, start Position) {
	s.state = state
	s.pos = start
	s.patternDelay = tstamp.Zero
	s.pendingGoto = nil
	s.paused = false
	for i := range s.cgiters {
		s.cgiters[i] = 0
	}
}

// Pause leaves sustained voices playing but stops advancing sequencer
// time (spec.md §4.1).
func (s *Sequencer) Pause() { s.paused = true }

// Resume un-pauses the sequencer.
func (s *Sequencer) Resume() { s.paused = false }

// RequestGoto implements spec.md §4.1's public operation: applied at the
// next chunk boundary, preempting in-flight rendering.
func (s *Sequencer) RequestGoto(track, system int, row tstamp.Tstamp) {
	s.pendingGoto = &gotoTarget{Track: track, System: system, Row: row}
}

// State returns the current playback state.
func (s *Sequencer) State() PlaybackState { return s.state }

// Pos returns the current position.
func (s *Sequencer) Pos() Position { return s.pos }
