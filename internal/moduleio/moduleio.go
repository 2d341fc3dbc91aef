// Package moduleio loads the JSON on-disk module format the cmd/
// binaries share. Deserializing a persisted module is explicitly a host
// concern under spec.md §6.3 ("NewPlayer accepts an already-parsed
// score.Module"); this is this codebase's own choice of host-side
// format, following the teacher's jsoniter idiom already adopted by
// internal/events' registry loader.
package moduleio

import (
	"fmt"
	"os"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/kunquat/kqtcore/internal/events"
	"github.com/kunquat/kqtcore/internal/score"
	"github.com/kunquat/kqtcore/internal/tstamp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// moduleDoc is the on-disk JSON shape: a thin, human-editable encoding of
// the score entities score.Module holds.
type moduleDoc struct {
	AudioRate int                   `json:"audio_rate"`
	Tracks    []int                 `json:"tracks"`
	Songs     []songDoc             `json:"songs"`
	Patterns  map[string]patternDoc `json:"patterns"`
}

type songDoc struct {
	Instances       []instanceDoc `json:"instances"`
	InitialTempoBPM float64       `json:"initial_tempo_bpm"`
}

type instanceDoc struct {
	PatternID  int `json:"pattern_id"`
	InstanceID int `json:"instance_id"`
}

type patternDoc struct {
	LengthBeats float64     `json:"length_beats"`
	Columns     []columnDoc `json:"columns"`
}

type columnDoc struct {
	Channel  int          `json:"channel"`
	Triggers []triggerDoc `json:"triggers"`
}

type triggerDoc struct {
	Beat float64     `json:"beat"`
	Name string      `json:"name"`
	Arg  interface{} `json:"arg"`
}

// Load reads a moduleDoc from path and resolves it into a score.Module,
// converting each trigger's raw JSON argument into the typed events.Arg
// its event name expects.
func Load(path string) (score.Module, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return score.Module{}, fmt.Errorf("moduleio: reading module file: %w", err)
	}
	var doc moduleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return score.Module{}, fmt.Errorf("moduleio: parsing module file: %w", err)
	}

	m := score.Module{
		Tracks:    doc.Tracks,
		AudioRate: doc.AudioRate,
		Patterns:  make(map[int]score.Pattern, len(doc.Patterns)),
	}
	for _, s := range doc.Songs {
		song := score.Song{InitialTempoBPM: s.InitialTempoBPM}
		for _, inst := range s.Instances {
			song.Instances = append(song.Instances, score.PatternInstanceRef{
				PatternID:  inst.PatternID,
				InstanceID: inst.InstanceID,
			})
		}
		m.Songs = append(m.Songs, song)
	}
	for idStr, pd := range doc.Patterns {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return score.Module{}, fmt.Errorf("moduleio: invalid pattern id %q", idStr)
		}
		pat := score.Pattern{Length: tstamp.FromBeats(int64(pd.LengthBeats))}
		for _, cd := range pd.Columns {
			cg := score.ColumnGroup{Channel: cd.Channel}
			for _, td := range cd.Triggers {
				arg, err := decodeArg(td.Name, td.Arg)
				if err != nil {
					return score.Module{}, fmt.Errorf("moduleio: pattern %d channel %d: %w", id, cd.Channel, err)
				}
				cg.Triggers = append(cg.Triggers, score.Trigger{
					Time: tstamp.FromBeats(int64(td.Beat)),
					Name: td.Name,
					Arg:  arg,
				})
			}
			pat.Columns = append(pat.Columns, cg)
		}
		m.Patterns[id] = pat
	}
	return m, nil
}

// decodeArg converts a trigger's raw JSON argument value into the typed
// events.Arg its registered event name expects, per the registry's
// argument-type table (internal/events).
func decodeArg(name string, raw interface{}) (events.Arg, error) {
	desc, ok := events.Lookup(name)
	if !ok {
		return events.Arg{}, fmt.Errorf("unknown event %q", name)
	}
	switch desc.ArgType {
	case events.ArgNone:
		return events.Arg{Type: events.ArgNone}, nil
	case events.ArgBool:
		b, ok := raw.(bool)
		if !ok {
			return events.Arg{}, fmt.Errorf("event %q expects a bool arg", name)
		}
		return events.Arg{Type: events.ArgBool, Bool: b}, nil
	case events.ArgInt:
		f, ok := raw.(float64)
		if !ok {
			return events.Arg{}, fmt.Errorf("event %q expects an int arg", name)
		}
		return events.Arg{Type: events.ArgInt, Int: int64(f)}, nil
	case events.ArgFloat:
		f, ok := raw.(float64)
		if !ok {
			return events.Arg{}, fmt.Errorf("event %q expects a float arg", name)
		}
		return events.Arg{Type: events.ArgFloat, Float: f}, nil
	case events.ArgString:
		s, ok := raw.(string)
		if !ok {
			return events.Arg{}, fmt.Errorf("event %q expects a string arg", name)
		}
		return events.Arg{Type: events.ArgString, String: s}, nil
	case events.ArgTstamp:
		f, ok := raw.(float64)
		if !ok {
			return events.Arg{}, fmt.Errorf("event %q expects a beat-count arg", name)
		}
		whole := int64(f)
		ts := tstamp.New(whole, int32((f-float64(whole))*float64(tstamp.BeatUnit)))
		return events.Arg{Type: events.ArgTstamp, TstampBeats: ts.Beats, TstampRem: ts.Remainder}, nil
	case events.ArgPatternInstRef:
		ref, ok := raw.(map[string]interface{})
		if !ok {
			return events.Arg{}, fmt.Errorf("event %q expects a pattern_instance_ref arg", name)
		}
		pid, _ := ref["pattern_id"].(float64)
		iid, _ := ref["instance_id"].(float64)
		return events.Arg{Type: events.ArgPatternInstRef, PatternID: int(pid), InstanceID: int(iid)}, nil
	default:
		return events.Arg{}, fmt.Errorf("event %q has unsupported arg type", name)
	}
}
