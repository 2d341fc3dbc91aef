package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCondStackDefaultDispatches(t *testing.T) {
	c := NewCondStack()
	assert.True(t, c.ShouldDispatch())
}

func TestCondStackPushFalseBlocks(t *testing.T) {
	c := NewCondStack()
	c.Push(false)
	assert.False(t, c.ShouldDispatch())
}

func TestCondStackElseFlips(t *testing.T) {
	c := NewCondStack()
	c.Push(false)
	assert.False(t, c.ShouldDispatch())
	c.Else()
	assert.True(t, c.ShouldDispatch())
}

func TestCondStackEndPops(t *testing.T) {
	c := NewCondStack()
	c.Push(true)
	c.Push(false)
	assert.False(t, c.ShouldDispatch())
	c.End()
	assert.True(t, c.ShouldDispatch())
	c.End()
	assert.Equal(t, 0, c.Depth())
}

func TestCondStackNestedAllMustMatch(t *testing.T) {
	c := NewCondStack()
	c.Push(true)
	c.Push(true)
	c.Push(false)
	assert.False(t, c.ShouldDispatch())
}

func TestActiveNames(t *testing.T) {
	var a ActiveNames
	assert.Equal(t, "", a.Get(ActiveNameControlVar))
	a.Set(ActiveNameControlVar, "cutoff")
	assert.Equal(t, "cutoff", a.Get(ActiveNameControlVar))
	assert.Equal(t, "", a.Get(ActiveNameStream))
}
