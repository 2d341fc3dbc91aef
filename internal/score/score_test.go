package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kunquat/kqtcore/internal/events"
	"github.com/kunquat/kqtcore/internal/tstamp"
)

func simpleModule() Module {
	return Module{
		Tracks: []int{0},
		Songs: []Song{
			{
				Instances:       []PatternInstanceRef{{PatternID: 0, InstanceID: 0}},
				InitialTempoBPM: 120,
			},
		},
		Patterns: map[int]Pattern{
			0: {
				Length: tstamp.FromBeats(4),
				Columns: []ColumnGroup{
					{Channel: 0, Triggers: []Trigger{
						{Time: tstamp.Zero, Name: "note_on", Arg: events.Arg{Type: events.ArgInt, Int: 60}},
					}},
				},
			},
		},
		AudioRate: 48000,
	}
}

func TestModuleValidateAccepts(t *testing.T) {
	m := simpleModule()
	assert.NoError(t, m.Validate())
}

func TestModuleValidateRejectsBadTrackRef(t *testing.T) {
	m := simpleModule()
	m.Tracks = []int{5}
	assert.Error(t, m.Validate())
}

func TestModuleValidateRejectsBadTempo(t *testing.T) {
	m := simpleModule()
	s := m.Songs[0]
	s.InitialTempoBPM = 0
	m.Songs[0] = s
	assert.Error(t, m.Validate())
}

func TestModuleValidateRejectsMissingPattern(t *testing.T) {
	m := simpleModule()
	s := m.Songs[0]
	s.Instances = []PatternInstanceRef{{PatternID: 99}}
	m.Songs[0] = s
	assert.Error(t, m.Validate())
}

func TestPatternValidateRejectsZeroLength(t *testing.T) {
	p := Pattern{Length: tstamp.Zero}
	assert.Error(t, p.Validate())
}

func TestColumnGroupValidateRejectsDecreasingTimestamps(t *testing.T) {
	cg := ColumnGroup{Triggers: []Trigger{
		{Time: tstamp.FromBeats(2), Name: "note_on"},
		{Time: tstamp.FromBeats(1), Name: "note_off"},
	}}
	assert.Error(t, cg.Validate(tstamp.FromBeats(4)))
}

func TestColumnGroupValidateRejectsOutOfRangeTimestamp(t *testing.T) {
	cg := ColumnGroup{Triggers: []Trigger{
		{Time: tstamp.FromBeats(5), Name: "note_on"},
	}}
	assert.Error(t, cg.Validate(tstamp.FromBeats(4)))
}

func TestPatternForResolves(t *testing.T) {
	m := simpleModule()
	p, ok := m.PatternFor(PatternInstanceRef{PatternID: 0})
	assert.True(t, ok)
	assert.Equal(t, tstamp.FromBeats(4), p.Length)
}
