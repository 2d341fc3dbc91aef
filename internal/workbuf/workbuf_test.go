package workbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsClearedAndInvalid(t *testing.T) {
	b := New(4)
	assert.Len(t, b.Data, 4)
	assert.False(t, b.IsValid)
	assert.True(t, b.Silence())
}

func TestClearResetsState(t *testing.T) {
	b := New(2)
	b.Data[0] = 1
	b.IsValid = true
	b.IsFinal = true
	b.ConstStartIndex = 1

	b.Clear()

	assert.Equal(t, []float32{0, 0}, b.Data)
	assert.False(t, b.IsValid)
	assert.False(t, b.IsFinal)
	assert.Equal(t, 0, b.ConstStartIndex)
}

func TestResizeGrowShrink(t *testing.T) {
	b := New(2)
	b.Resize(8)
	assert.Len(t, b.Data, 8)
	b.Resize(3)
	assert.Len(t, b.Data, 3)
}

func TestSilenceWithZeroConstantTail(t *testing.T) {
	b := New(4)
	b.IsValid = true
	b.ConstStartIndex = 1 // Data[0]=0 is the constant value
	assert.True(t, b.Silence())
}

func TestSilenceWithNonZeroConstantTail(t *testing.T) {
	b := New(4)
	b.IsValid = true
	b.Data[0] = 0.5
	b.ConstStartIndex = 1
	assert.False(t, b.Silence())
}

func TestMixAddAccumulates(t *testing.T) {
	dst := New(4)
	dst.IsValid = true
	dst.Data = []float32{1, 1, 1, 1}

	src := New(4)
	src.IsValid = true
	src.Data = []float32{1, 2, 3, 4}

	MixAdd(dst, src, 0, 4)
	assert.Equal(t, []float32{2, 3, 4, 5}, dst.Data)
}

func TestMixAddSkipsInvalidSource(t *testing.T) {
	dst := New(2)
	dst.IsValid = true
	dst.Data = []float32{1, 1}

	src := New(2) // never written, IsValid false

	MixAdd(dst, src, 0, 2)
	assert.Equal(t, []float32{1, 1}, dst.Data)
}

func TestArenaGetReusesBuffer(t *testing.T) {
	a := NewArena(4)
	b1 := a.Get("edge-a")
	b1.Data[0] = 9
	b2 := a.Get("edge-a")
	assert.Same(t, b1, b2)
	assert.Equal(t, float32(9), b2.Data[0])
}

func TestArenaResetForChunkClearsAll(t *testing.T) {
	a := NewArena(2)
	b := a.Get("e")
	b.Data[0] = 5
	b.IsValid = true

	a.ResetForChunk()

	assert.Equal(t, float32(0), b.Data[0])
	assert.False(t, b.IsValid)
}

func TestArenaResizeResizesAllBuffers(t *testing.T) {
	a := NewArena(2)
	b := a.Get("e")
	a.Resize(6)
	assert.Len(t, b.Data, 6)
}
