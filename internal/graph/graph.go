// Package graph implements the device graph executor from spec.md §4.4:
// a DAG of audio units containing processors, executed in topological
// order per render chunk, each processor rendering into work buffers.
//
// Per spec.md §9 design notes ("Prefer a tagged enum of processor kinds
// ... avoid boxed trait objects on the hot path if the set of processors
// is closed"), processors are dispatched through one of two small
// interfaces (voice-rendering vs. mixed) rather than a single
// do-everything interface, mirroring the spec's own
// render_voice/render_mixed split. The concrete processor kinds
// implementing these interfaces live in the processors package.
package graph

import (
	"fmt"

	"github.com/kunquat/kqtcore/internal/voice"
	"github.com/kunquat/kqtcore/internal/workbuf"
)

// NodeKind distinguishes a voice-rendering processor from a mixed one
// (spec.md §4.4 step 3b/3c).
type NodeKind int

const (
	NodeVoice NodeKind = iota
	NodeMixed
)

// VoiceProcessor is a leaf DSP node rendered once per active voice in its
// containing audio unit (spec.md: "invoke their render_voice(...) for
// each active voice").
type VoiceProcessor interface {
	// RenderVoice renders count frames starting at offset into out,
	// advancing state in place. It returns true when this call caused
	// the voice's tail to fully decay (spec.md "Voice finalization").
	RenderVoice(state *voice.State, out *workbuf.Buffer, offset, count, sampleRate int) (finished bool)
}

// MixedProcessor is invoked once per chunk regardless of active voice
// count (spec.md: "invoke render_mixed(...) once"), e.g. audio-unit
// effects and sends.
type MixedProcessor interface {
	RenderMixed(in []*workbuf.Buffer, out *workbuf.Buffer, offset, count, sampleRate int)
}

// Node is one processor in the device graph.
type Node struct {
	ID          string
	Kind        NodeKind
	AudioUnitID int // which audio unit this processor belongs to
	Voice       VoiceProcessor
	Mixed       MixedProcessor

	// Inputs lists the node IDs whose output buffer feeds this node,
	// already resolved from the graph's port-level edge description at
	// load time (spec.md §4.4 "Graph structure ... edges connect typed
	// ports").
	Inputs []string
}

// Graph is the validated, topologically-ordered device graph for one
// Module. It is built once at load time and never mutated during
// rendering (spec.md §5 "Score ... read-only shared").
type Graph struct {
	nodes      map[string]*Node
	order      []string // topological order, leaves first
	masterSink string

	// procIDs assigns a stable integer id to every voice-rendering node,
	// the processor id a voice.Pool.Slot.ProcessorID refers to when a
	// voice group is reserved against processorSet (spec.md §4.3).
	procIDs    map[string]int
	procByID   map[int]string
}

// New validates nodes for acyclicity and returns a ready-to-execute Graph.
// A cyclic graph is a configuration error and must be rejected at load
// (spec.md §3.3 invariant 3, §7 "Configuration errors").
func New(nodes []*Node, masterSink string) (*Graph, error) {
	g := &Graph{nodes: make(map[string]*Node, len(nodes)), masterSink: masterSink}
	for _, n := range nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("graph: duplicate node id %q", n.ID)
		}
		g.nodes[n.ID] = n
	}
	if _, ok := g.nodes[masterSink]; masterSink != "" && !ok {
		return nil, fmt.Errorf("graph: master sink %q not found among nodes", masterSink)
	}
	for _, n := range nodes {
		for _, in := range n.Inputs {
			if _, ok := g.nodes[in]; !ok {
				return nil, fmt.Errorf("graph: node %q has input from nonexistent node %q", n.ID, in)
			}
		}
	}

	order, err := topoSort(g.nodes)
	if err != nil {
		return nil, err
	}
	g.order = order

	voiceIDs := make([]string, 0)
	for _, n := range nodes {
		if n.Kind == NodeVoice {
			voiceIDs = append(voiceIDs, n.ID)
		}
	}
	sortStrings(voiceIDs)
	g.procIDs = make(map[string]int, len(voiceIDs))
	g.procByID = make(map[int]string, len(voiceIDs))
	for i, id := range voiceIDs {
		g.procIDs[id] = i
		g.procByID[i] = id
	}

	return g, nil
}

// ProcessorID returns the stable integer processor id for a voice node,
// used as the processorSet member when reserving a voice group.
func (g *Graph) ProcessorID(nodeID string) (int, bool) {
	id, ok := g.procIDs[nodeID]
	return id, ok
}

// NodeForProcessorID resolves a processor id back to its node.
func (g *Graph) NodeForProcessorID(id int) (*Node, bool) {
	nodeID, ok := g.procByID[id]
	if !ok {
		return nil, false
	}
	return g.nodes[nodeID], true
}

// VoiceProcessorIDsForAudioUnit returns, in stable order, the processor
// ids of every voice-rendering node belonging to audioUnitID — the
// processorSet passed to voice.Pool.ReserveGroup for a note_on in that
// audio unit (spec.md §4.3 "reserve_group(channel, processor_set,
// priority)").
func (g *Graph) VoiceProcessorIDsForAudioUnit(audioUnitID int) []int {
	ids := make([]int, 0)
	for i := 0; i < len(g.procByID); i++ {
		nodeID := g.procByID[i]
		if g.nodes[nodeID].AudioUnitID == audioUnitID {
			ids = append(ids, i)
		}
	}
	return ids
}

// topoSort computes a leaves-first topological order (dependency order:
// "Work buffers -> Voice states -> Device graph" from spec.md §2, applied
// at the node level here) and rejects cycles.
func topoSort(nodes map[string]*Node) ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	order := make([]string, 0, len(nodes))

	// Stable iteration order for determinism (spec.md §8 invariant 4:
	// bit-identical rendering requires deterministic graph traversal).
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sortStrings(ids)

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return fmt.Errorf("graph: cycle detected at node %q", id)
		case black:
			return nil
		}
		color[id] = gray
		n := nodes[id]
		inputs := append([]string(nil), n.Inputs...)
		sortStrings(inputs)
		for _, dep := range inputs {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Order returns the graph's precomputed topological order, leaves first.
func (g *Graph) Order() []string { return g.order }

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node { return g.nodes[id] }

// MasterSink returns the master sink node id, or "" if none is set.
func (g *Graph) MasterSink() string { return g.masterSink }
