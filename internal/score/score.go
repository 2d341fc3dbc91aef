// Package score defines the read-only score entities that are the core's
// input (spec.md §3.1). A Module is immutable during playback and shared
// by reference across the render thread (spec.md §5).
//
// The nested layout (pattern -> row -> column) is grounded on the
// teacher's internal/model.Model.PhrasesData [255][][]int / ChainsData
// [][]int fields, but re-expressed with a typed Trigger value instead of
// raw int cells: the teacher's cells are untyped ints because they back a
// 2D text editor grid, while the core here must validate a typed argument
// per trigger (spec.md §4.2).
package score

import (
	"fmt"

	"github.com/kunquat/kqtcore/internal/events"
	"github.com/kunquat/kqtcore/internal/tstamp"
)

// Trigger is a timestamped event with a name and typed argument
// (spec.md §3.1).
type Trigger struct {
	Time tstamp.Tstamp
	Name string
	Arg  events.Arg
}

// ColumnGroup is the ordered sequence of triggers on one channel within
// one pattern (spec.md §3.1, GLOSSARY). Timestamps must be non-decreasing
// and within the containing pattern's length.
type ColumnGroup struct {
	Channel  int
	Triggers []Trigger
}

// Validate checks the non-decreasing-timestamp and within-pattern-length
// invariants for one column group.
func (cg ColumnGroup) Validate(patternLength tstamp.Tstamp) error {
	prev := tstamp.Zero
	for i, tr := range cg.Triggers {
		if tr.Time.Less(prev) {
			return fmt.Errorf("score: column %d trigger %d: timestamp %s precedes previous %s", cg.Channel, i, tr.Time, prev)
		}
		if patternLength.Less(tr.Time) {
			return fmt.Errorf("score: column %d trigger %d: timestamp %s exceeds pattern length %s", cg.Channel, i, tr.Time, patternLength)
		}
		prev = tr.Time
	}
	return nil
}

// Pattern is a scheduling unit: a length (spec.md: "length > 0") and the
// column groups (one per channel with triggers) that occupy it.
type Pattern struct {
	Length  tstamp.Tstamp
	Columns []ColumnGroup
}

// Validate checks Pattern's own invariant and every column group's.
func (p Pattern) Validate() error {
	if p.Length.Cmp(tstamp.Zero) <= 0 {
		return fmt.Errorf("score: pattern length must be > 0, got %s", p.Length)
	}
	for _, cg := range p.Columns {
		if err := cg.Validate(p.Length); err != nil {
			return err
		}
	}
	return nil
}

// PatternInstanceRef identifies a reusable scheduling of a pattern within
// a song (spec.md §3.1 "Pattern instance", GLOSSARY).
type PatternInstanceRef struct {
	PatternID  int
	InstanceID int
}

// Song is an ordered sequence of pattern-instance references plus initial
// playback parameters (spec.md §3.1).
type Song struct {
	Instances           []PatternInstanceRef
	InitialTempoBPM     float64 // tempo ∈ [1, 999]
	InitialGlobalVolume float64
}

// Validate checks Song's tempo range invariant (reference resolution is
// checked by Module.Validate, which has the pattern table in scope).
func (s Song) Validate() error {
	if s.InitialTempoBPM < 1 || s.InitialTempoBPM > 999 {
		return fmt.Errorf("score: song tempo %v out of range [1, 999]", s.InitialTempoBPM)
	}
	return nil
}

// ChannelDefaults is the per-channel initial binding (spec.md §3.1).
type ChannelDefaults struct {
	AudioUnitIndex int // >= 0
	ExpressionName string
}

// Module is the immutable, read-only score plus device graph description
// consumed by the player (spec.md §3.1, §3.2 "Ownership rules"). The
// device graph description itself lives in the graph package; Module
// embeds only the identifiers the player needs to address it (spec.md's
// own separation between "score" and "device graph description").
type Module struct {
	Tracks   []int // ordered sequence of song indices
	Songs    []Song
	Patterns map[int]Pattern // pattern_id -> Pattern; multiple instances may reference the same pattern_id

	ChannelDefaults [KQTChannelsMax]ChannelDefaults

	AudioRate int // Hz, default 48000 (spec.md §6.1)
}

// KQTChannelsMax is the fixed channel count (spec.md §3.2).
const KQTChannelsMax = 64

// Validate checks every invariant in spec.md §3.1/§3.3 invariant 3
// (acyclicity is checked by the graph package, which owns the DAG
// description). A Module that fails Validate must be rejected at load
// and never reach the render path (spec.md §7 "Configuration errors").
func (m Module) Validate() error {
	for _, trackIdx := range m.Tracks {
		if trackIdx < 0 || trackIdx >= len(m.Songs) {
			return fmt.Errorf("score: track references nonexistent song %d", trackIdx)
		}
	}
	for si, song := range m.Songs {
		if err := song.Validate(); err != nil {
			return fmt.Errorf("score: song %d: %w", si, err)
		}
		for _, ref := range song.Instances {
			if ref.PatternID < 0 || ref.InstanceID < 0 {
				return fmt.Errorf("score: song %d: negative pattern instance ref %+v", si, ref)
			}
			if _, ok := m.Patterns[ref.PatternID]; !ok {
				return fmt.Errorf("score: song %d: references nonexistent pattern %d", si, ref.PatternID)
			}
		}
	}
	for pid, pat := range m.Patterns {
		if err := pat.Validate(); err != nil {
			return fmt.Errorf("score: pattern %d: %w", pid, err)
		}
	}
	for ci, cd := range m.ChannelDefaults {
		if cd.AudioUnitIndex < 0 {
			return fmt.Errorf("score: channel %d: invalid audio unit index %d", ci, cd.AudioUnitIndex)
		}
	}
	return nil
}

// PatternFor resolves a pattern instance reference to its Pattern.
func (m Module) PatternFor(ref PatternInstanceRef) (Pattern, bool) {
	p, ok := m.Patterns[ref.PatternID]
	return p, ok
}
