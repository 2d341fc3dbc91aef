// Package democonfig supplies the fixed device graph and placeholder
// module the command-line tools in cmd/ render against. None of them
// implement a device-graph file format (spec.md §3.2's device graph
// description is a separate concern from the module itself, and no
// example in this codebase's lineage persists one either), so they share
// one hand-wired graph here instead of each re-declaring it.
package democonfig

import (
	"github.com/kunquat/kqtcore/internal/graph"
	"github.com/kunquat/kqtcore/internal/processors"
	"github.com/kunquat/kqtcore/internal/score"
	"github.com/kunquat/kqtcore/internal/tstamp"
)

// BuildGraph returns one stereo side's device graph: a sawtooth lead
// (audio unit 0) through a low-pass filter, and a kick drum (audio unit
// 1), both summed into a single master volume sink. Call it once per
// Channel to get the Left/Right pair NewPlayer expects (DESIGN.md
// "Stereo rendering").
func BuildGraph(ch processors.Channel) *graph.Graph {
	lead := &graph.Node{
		ID: "lead", Kind: graph.NodeVoice, AudioUnitID: 0,
		Voice: processors.Oscillator{Wave: processors.WaveSaw, Channel: ch},
	}
	leadFilter := &graph.Node{
		ID: "lead_filter", Kind: graph.NodeMixed, Inputs: []string{"lead"},
		Mixed: &processors.LowPass{CutoffHz: 4000},
	}
	kick := &graph.Node{
		ID: "kick", Kind: graph.NodeVoice, AudioUnitID: 1,
		Voice: processors.Percussion{Kind: processors.Kick, Channel: ch},
	}
	bus := &graph.Node{
		ID: "bus", Kind: graph.NodeMixed, Inputs: []string{"lead_filter", "kick"},
		Mixed: processors.Sum{},
	}
	master := &graph.Node{
		ID: "master", Kind: graph.NodeMixed, Inputs: []string{"bus"},
		Mixed: &processors.Volume{GainDB: 0},
	}

	g, err := graph.New([]*graph.Node{lead, leadFilter, kick, bus, master}, "master")
	if err != nil {
		panic("democonfig: fixed demo graph is malformed: " + err.Error())
	}
	return g
}

// LiveModule returns a minimal single-track module with one long empty
// pattern, for hosts that drive playback entirely through fire_event
// (spec.md §6.2) rather than a pre-authored score. It keeps the
// sequencer in PlayingModule so RenderChunk keeps advancing, without
// scheduling any triggers of its own.
func LiveModule(audioRate int) score.Module {
	pattern := score.Pattern{Length: tstamp.FromBeats(1 << 20)}
	return score.Module{
		Tracks: []int{0},
		Songs: []score.Song{{
			Instances:       []score.PatternInstanceRef{{PatternID: 0}},
			InitialTempoBPM: 120,
		}},
		Patterns:  map[int]score.Pattern{0: pattern},
		AudioRate: audioRate,
	}
}
