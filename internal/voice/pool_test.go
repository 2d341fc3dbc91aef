package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReserveGroupAtomicAllOrNothing(t *testing.T) {
	p := NewPool(4)
	g, ok := p.ReserveGroup(0, []int{10, 11}, PriorityForeground)
	assert.True(t, ok)
	assert.Len(t, g.Slots, 2)
	for _, i := range g.Slots {
		assert.True(t, p.Slot(i).Active)
		assert.Equal(t, g.ID, p.Slot(i).GroupID)
	}
}

func TestReserveGroupFailsWhenInsufficientCapacity(t *testing.T) {
	p := NewPool(2)
	p.ReserveGroup(0, []int{1}, PriorityForeground)
	p.ReserveGroup(1, []int{1}, PriorityForeground)

	_, ok := p.ReserveGroup(2, []int{1, 2}, PriorityForeground)
	assert.False(t, ok)
}

func TestReserveGroupEvictsBackgroundBeforeForeground(t *testing.T) {
	p := NewPool(2)
	g1, _ := p.ReserveGroup(0, []int{1}, PriorityForeground)
	p.Demote(g1.ID) // channel 0's voice becomes background (tail)
	p.ReserveGroup(1, []int{1}, PriorityForeground)

	// Pool full: one background (ch0), one foreground (ch1). A third
	// channel's note_on must evict the background voice, not the
	// foreground one.
	g3, ok := p.ReserveGroup(2, []int{1}, PriorityForeground)
	assert.True(t, ok)
	assert.Len(t, g3.Slots, 1)

	// channel 1's foreground voice must still be present somewhere.
	found := false
	for i := 0; i < p.Size(); i++ {
		s := p.Slot(i)
		if s.Active && s.ChannelIndex == 1 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReserveGroupRejectsSameChannelForegroundEviction(t *testing.T) {
	p := NewPool(1)
	p.ReserveGroup(0, []int{1}, PriorityForeground)

	// Same channel retriggering without note_off must fail rather than
	// evict its own foreground voice (spec.md §4.3 step 3).
	_, ok := p.ReserveGroup(0, []int{1}, PriorityForeground)
	assert.False(t, ok)
}

func TestDemoteMovesWholeGroupToBackground(t *testing.T) {
	p := NewPool(4)
	g, _ := p.ReserveGroup(0, []int{1, 2}, PriorityForeground)
	p.Demote(g.ID)
	for _, i := range g.Slots {
		assert.Equal(t, PriorityBackground, p.Slot(i).Priority)
	}
}

func TestMarkFinishedFreesOnlyWhenWholeGroupDone(t *testing.T) {
	p := NewPool(4)
	g, _ := p.ReserveGroup(0, []int{1, 2}, PriorityForeground)

	p.MarkFinished(g.Slots[0])
	assert.True(t, p.Slot(g.Slots[0]).Active, "partial activation must never be observable mid-group")
	assert.True(t, p.Slot(g.Slots[1]).Active)

	p.MarkFinished(g.Slots[1])
	assert.False(t, p.Slot(g.Slots[0]).Active)
	assert.False(t, p.Slot(g.Slots[1]).Active)
}

func TestResolveDetectsReallocatedSlot(t *testing.T) {
	p := NewPool(1)
	g, _ := p.ReserveGroup(0, []int{1}, PriorityForeground)
	h := Handle{SlotIndex: g.Slots[0], GroupID: g.ID}

	assert.NotNil(t, p.Resolve(h))

	// Free the group and reallocate the same slot to a new group.
	p.Demote(g.ID)
	p.MarkFinished(g.Slots[0])
	p.ReserveGroup(1, []int{2}, PriorityForeground)

	assert.Nil(t, p.Resolve(h), "stale handle must not resolve after reallocation")
}

func TestReservationConsumeAndExpire(t *testing.T) {
	p := NewPool(4)
	gid, ok := p.AddReservation(0, 2)
	assert.True(t, ok)

	p.ExpireReservations()
	_, ok = p.ConsumeReservation(gid, 0, []int{1, 2}, PriorityForeground)
	assert.False(t, ok, "unconsumed reservation must expire at chunk boundary")
}

func TestReservationConsumeBeforeExpire(t *testing.T) {
	p := NewPool(4)
	gid, ok := p.AddReservation(0, 2)
	assert.True(t, ok)

	g, ok := p.ConsumeReservation(gid, 0, []int{1, 2}, PriorityForeground)
	assert.True(t, ok)
	assert.Len(t, g.Slots, 2)
	assert.True(t, p.Slot(g.Slots[0]).Active)
}

func TestActiveSlotsAndGroupSize(t *testing.T) {
	p := NewPool(4)
	g, _ := p.ReserveGroup(0, []int{1, 2, 3}, PriorityForeground)
	assert.Equal(t, 3, p.GroupSize(g.ID))
	assert.ElementsMatch(t, g.Slots, p.ActiveSlots())
}

func TestCancelDeactivatesGroupImmediately(t *testing.T) {
	p := NewPool(4)
	g, ok := p.ReserveGroup(0, []int{1, 2}, PriorityForeground)
	assert.True(t, ok)

	p.Cancel(g.ID)

	for _, i := range g.Slots {
		assert.False(t, p.Slot(i).Active)
	}
	assert.Equal(t, 0, p.GroupSize(g.ID))
}
