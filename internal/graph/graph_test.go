package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRejectsCycle(t *testing.T) {
	a := &Node{ID: "a", Kind: NodeMixed, Inputs: []string{"b"}}
	b := &Node{ID: "b", Kind: NodeMixed, Inputs: []string{"a"}}
	_, err := New([]*Node{a, b}, "")
	assert.Error(t, err)
}

func TestNewRejectsDanglingInput(t *testing.T) {
	a := &Node{ID: "a", Kind: NodeMixed, Inputs: []string{"missing"}}
	_, err := New([]*Node{a}, "")
	assert.Error(t, err)
}

func TestNewRejectsDuplicateID(t *testing.T) {
	a := &Node{ID: "a", Kind: NodeMixed}
	a2 := &Node{ID: "a", Kind: NodeMixed}
	_, err := New([]*Node{a, a2}, "")
	assert.Error(t, err)
}

func TestTopoOrderRespectsDependencies(t *testing.T) {
	osc := &Node{ID: "osc", Kind: NodeVoice}
	vol := &Node{ID: "vol", Kind: NodeMixed, Inputs: []string{"osc"}}
	sink := &Node{ID: "sink", Kind: NodeMixed, Inputs: []string{"vol"}}

	g, err := New([]*Node{sink, vol, osc}, "sink")
	assert.NoError(t, err)

	order := g.Order()
	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["osc"], pos["vol"])
	assert.Less(t, pos["vol"], pos["sink"])
}

func TestProcessorIDAssignmentIsStableAndVoiceOnly(t *testing.T) {
	oscA := &Node{ID: "oscA", Kind: NodeVoice, AudioUnitID: 0}
	oscB := &Node{ID: "oscB", Kind: NodeVoice, AudioUnitID: 0}
	mix := &Node{ID: "mix", Kind: NodeMixed, Inputs: []string{"oscA", "oscB"}}

	g, err := New([]*Node{oscA, oscB, mix}, "")
	assert.NoError(t, err)

	idA, ok := g.ProcessorID("oscA")
	assert.True(t, ok)
	idB, ok := g.ProcessorID("oscB")
	assert.True(t, ok)
	assert.NotEqual(t, idA, idB)

	_, ok = g.ProcessorID("mix")
	assert.False(t, ok, "mixed nodes never get a processor id")

	ids := g.VoiceProcessorIDsForAudioUnit(0)
	assert.ElementsMatch(t, []int{idA, idB}, ids)
}

func TestMasterSinkMustExistIfNamed(t *testing.T) {
	a := &Node{ID: "a", Kind: NodeMixed}
	_, err := New([]*Node{a}, "nonexistent")
	assert.Error(t, err)
}
