package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kunquat/kqtcore/internal/voice"
	"github.com/kunquat/kqtcore/internal/workbuf"
)

// constVoice writes a constant 1.0 for every active voice sample, never
// finishing, used to test mixing and active-voice gathering.
type constVoice struct{}

func (constVoice) RenderVoice(state *voice.State, out *workbuf.Buffer, offset, count, sampleRate int) bool {
	for i := offset; i < offset+count; i++ {
		out.Data[i] += 1.0
	}
	out.IsValid = true
	return false
}

// sumMixed adds all its inputs into out.
type sumMixed struct{}

func (sumMixed) RenderMixed(in []*workbuf.Buffer, out *workbuf.Buffer, offset, count, sampleRate int) {
	for _, b := range in {
		workbuf.MixAdd(out, b, offset, count)
	}
}

func buildSimpleGraph(t *testing.T) (*Graph, *voice.Pool, *workbuf.Arena) {
	t.Helper()
	osc := &Node{ID: "osc", Kind: NodeVoice, AudioUnitID: 0, Voice: constVoice{}}
	sink := &Node{ID: "sink", Kind: NodeMixed, Inputs: []string{"osc"}, Mixed: sumMixed{}}

	g, err := New([]*Node{osc, sink}, "sink")
	assert.NoError(t, err)

	pool := voice.NewPool(4)
	arena := workbuf.NewArena(8)
	return g, pool, arena
}

func TestExecutorRendersActiveVoicesIntoSink(t *testing.T) {
	g, pool, arena := buildSimpleGraph(t)
	procID, _ := g.ProcessorID("osc")
	_, ok := pool.ReserveGroup(0, []int{procID}, voice.PriorityForeground)
	assert.True(t, ok)

	ex := NewExecutor(g, arena, pool, 48000)
	ex.BeginChunk()
	ex.RenderRange(0, 8)

	out := ex.MasterOutput()
	assert.True(t, out.IsValid)
	for _, v := range out.Data {
		assert.Equal(t, float32(1.0), v)
	}
}

func TestExecutorNoActiveVoicesProducesSilence(t *testing.T) {
	g, pool, arena := buildSimpleGraph(t)
	_ = pool

	ex := NewExecutor(g, arena, pool, 48000)
	ex.BeginChunk()
	ex.RenderRange(0, 8)

	out := ex.MasterOutput()
	assert.True(t, out.Silence())
}

func TestExecutorRenderRangeCanBeCalledInSlices(t *testing.T) {
	g, pool, arena := buildSimpleGraph(t)
	procID, _ := g.ProcessorID("osc")
	pool.ReserveGroup(0, []int{procID}, voice.PriorityForeground)

	ex := NewExecutor(g, arena, pool, 48000)
	ex.BeginChunk()
	ex.RenderRange(0, 4)
	ex.RenderRange(4, 4)

	out := ex.MasterOutput()
	for _, v := range out.Data {
		assert.Equal(t, float32(1.0), v)
	}
}

func TestExecutorFinishedVoiceIsReclaimed(t *testing.T) {
	osc := &Node{ID: "osc", Kind: NodeVoice, AudioUnitID: 0, Voice: finishingVoice{}}
	sink := &Node{ID: "sink", Kind: NodeMixed, Inputs: []string{"osc"}, Mixed: sumMixed{}}
	g, err := New([]*Node{osc, sink}, "sink")
	assert.NoError(t, err)

	pool := voice.NewPool(2)
	arena := workbuf.NewArena(4)
	procID, _ := g.ProcessorID("osc")
	grp, _ := pool.ReserveGroup(0, []int{procID}, voice.PriorityForeground)

	ex := NewExecutor(g, arena, pool, 48000)
	ex.BeginChunk()
	ex.RenderRange(0, 4)

	assert.False(t, pool.Slot(grp.Slots[0]).Active, "finished voice must be reclaimed by the executor")
}

type finishingVoice struct{}

func (finishingVoice) RenderVoice(state *voice.State, out *workbuf.Buffer, offset, count, sampleRate int) bool {
	out.IsValid = true
	return true
}
