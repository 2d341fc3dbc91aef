package graph

import (
	"github.com/kunquat/kqtcore/internal/voice"
	"github.com/kunquat/kqtcore/internal/workbuf"
)

// Executor runs one Graph's nodes in topological order against a work
// buffer arena and a voice pool, implementing spec.md §4.4's per-chunk
// algorithm. The render loop (player package) calls RenderRange once per
// sub-chunk slice between consecutive sample-accurate trigger offsets
// (spec.md §4.4 "Sample-accurate event interleaving").
type Executor struct {
	graph *Graph
	arena *workbuf.Arena
	pool  *voice.Pool

	sampleRate int
}

// NewExecutor builds an executor for graph, backed by arena (sized for
// one chunk) and pool (the shared voice pool).
func NewExecutor(g *Graph, arena *workbuf.Arena, pool *voice.Pool, sampleRate int) *Executor {
	return &Executor{graph: g, arena: arena, pool: pool, sampleRate: sampleRate}
}

// BeginChunk clears every work buffer and expires stale voice-group
// reservations, called once at the start of each render chunk (spec.md
// §4.4 step 1 precondition, §4.3 reservation expiry).
func (e *Executor) BeginChunk() {
	e.arena.ResetForChunk()
	e.pool.ExpireReservations()
}

// RenderRange renders [offset, offset+count) of the current chunk through
// every node in topological order (spec.md §4.4 steps 2-4). It may be
// called multiple times per chunk, once per sample-accurate trigger
// boundary; buffers retain state (IsValid, ConstStartIndex) across calls
// within the same chunk so later ranges can still merge with earlier
// ones via MixAdd.
func (e *Executor) RenderRange(offset, count int) {
	if count <= 0 {
		return
	}
	for _, id := range e.graph.order {
		n := e.graph.nodes[id]
		out := e.arena.Get(id)

		switch n.Kind {
		case NodeVoice:
			e.renderVoiceNode(n, out, offset, count)
		case NodeMixed:
			e.renderMixedNode(n, out, offset, count)
		}
	}
}

func (e *Executor) renderVoiceNode(n *Node, out *workbuf.Buffer, offset, count int) {
	procID, ok := e.graph.procIDs[n.ID]
	if !ok || n.Voice == nil {
		return
	}
	for _, slotIdx := range e.pool.ActiveSlots() {
		slot := e.pool.Slot(slotIdx)
		if slot.ProcessorID != procID {
			continue
		}
		finished := n.Voice.RenderVoice(&slot.State, out, offset, count, e.sampleRate)
		if finished {
			e.pool.MarkFinished(slotIdx)
		}
	}
}

func (e *Executor) renderMixedNode(n *Node, out *workbuf.Buffer, offset, count int) {
	if n.Mixed == nil {
		return
	}
	ins := make([]*workbuf.Buffer, 0, len(n.Inputs))
	for _, inID := range n.Inputs {
		ins = append(ins, e.arena.Get(inID))
	}
	n.Mixed.RenderMixed(ins, out, offset, count, e.sampleRate)
}

// MasterOutput returns the master sink's work buffer, the source for the
// final interleaved audio stream (spec.md §4.4 step 4, §6.1).
func (e *Executor) MasterOutput() *workbuf.Buffer {
	return e.arena.Get(e.graph.masterSink)
}
