package voice

import "sort"

// Priority is a voice slot's eviction priority (spec.md §4.3).
type Priority int

const (
	PriorityInactive Priority = iota
	PriorityBackground
	PriorityForeground
)

// Slot is one voice-pool entry (spec.md §3.2 "Voice slot").
type Slot struct {
	GroupID      uint64
	Priority     Priority
	ChannelIndex int
	ProcessorID  int
	State        State
	Active       bool

	age int // monotonically increasing allocation counter, used for eviction ordering
}

// Handle is a weak reference a channel holds to a leased slot: the slot
// index plus the group id it was leased with. Any read must verify
// GroupID still matches the slot's current GroupID before trusting it
// (spec.md §3.2 "Ownership rules").
type Handle struct {
	SlotIndex int
	GroupID   uint64
}

// Group is the result of a successful reservation: the group id and the
// slot indices that were allocated together (spec.md §4.3 step 5).
type Group struct {
	ID    uint64
	Slots []int
}

// Pool is the fixed-size voice pool shared across channels.
type Pool struct {
	slots       []Slot
	nextGroupID uint64
	nextAge     int

	// reservations holds pre-reserved slots for mixed-group activation
	// (spec.md §4.3 "Reservation for mixed-group activation") keyed by
	// group id, expiring at the next render-chunk boundary.
	reservations map[uint64][]int
}

// NewPool allocates a pool with n fixed slots (spec.md default N=256).
func NewPool(n int) *Pool {
	return &Pool{
		slots:        make([]Slot, n),
		reservations: make(map[uint64][]int),
	}
}

// Size returns the number of slots in the pool.
func (p *Pool) Size() int { return len(p.slots) }

// Slot returns a pointer to the slot at index i for direct read/mutation
// by the render path. Callers must verify the GroupID against a Handle
// before trusting slot contents.
func (p *Pool) Slot(i int) *Slot { return &p.slots[i] }

// Resolve returns the slot for h if its group id still matches, or nil if
// the voice has since been reallocated (spec.md §3.2).
func (p *Pool) Resolve(h Handle) *Slot {
	if h.SlotIndex < 0 || h.SlotIndex >= len(p.slots) {
		return nil
	}
	s := &p.slots[h.SlotIndex]
	if !s.Active || s.GroupID != h.GroupID {
		return nil
	}
	return s
}

// candidateOrder ranks slot indices for eviction: inactive first, then
// background (ascending age then group id), then foreground (ascending
// age then group id) — spec.md §4.3 step 2 and "Eviction ordering".
func (p *Pool) candidateOrder() []int {
	idx := make([]int, len(p.slots))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		sa, sb := &p.slots[idx[a]], &p.slots[idx[b]]
		if sa.Priority != sb.Priority {
			return sa.Priority < sb.Priority
		}
		if sa.age != sb.age {
			return sa.age < sb.age
		}
		return sa.GroupID < sb.GroupID
	})
	return idx
}

// ReserveGroup leases K = len(processorSet) slots atomically for channel
// at the given priority (spec.md §4.3 "Allocation"). On failure (not
// enough evictable capacity, or eviction would displace a foreground
// voice of the same channel) it returns ok=false and mutates nothing.
func (p *Pool) ReserveGroup(channel int, processorSet []int, priority Priority) (Group, bool) {
	k := len(processorSet)
	if k == 0 || k > len(p.slots) {
		return Group{}, false
	}

	order := p.candidateOrder()
	chosen := make([]int, 0, k)
	for _, i := range order {
		s := &p.slots[i]
		if s.Active && s.Priority == PriorityForeground && s.ChannelIndex == channel {
			// Same-channel retrigger must reuse via explicit note_off,
			// never by evicting the channel's own foreground voice.
			continue
		}
		chosen = append(chosen, i)
		if len(chosen) == k {
			break
		}
	}
	if len(chosen) < k {
		return Group{}, false
	}

	// Verify none of the chosen slots is a same-channel foreground voice
	// (defensive re-check; the loop above already excludes this, but the
	// spec calls this out as its own failure mode in step 3).
	for _, i := range chosen {
		s := &p.slots[i]
		if s.Active && s.Priority == PriorityForeground && s.ChannelIndex == channel {
			return Group{}, false
		}
	}

	p.nextGroupID++
	gid := p.nextGroupID
	p.nextAge++
	age := p.nextAge

	for n, i := range chosen {
		s := &p.slots[i]
		*s = Slot{
			GroupID:      gid,
			Priority:     priority,
			ChannelIndex: channel,
			ProcessorID:  processorSet[n],
			Active:       true,
			age:          age,
		}
	}

	return Group{ID: gid, Slots: chosen}, true
}

// AddReservation pre-reserves K slots for a later dispatch step without
// activating them yet (spec.md §4.3 "Reservation for mixed-group
// activation"). The caller consumes the reservation with
// ConsumeReservation; unconsumed reservations expire at the next chunk
// boundary via ExpireReservations.
func (p *Pool) AddReservation(channel int, k int) (uint64, bool) {
	order := p.candidateOrder()
	chosen := make([]int, 0, k)
	for _, i := range order {
		s := &p.slots[i]
		if s.Active && s.Priority == PriorityForeground && s.ChannelIndex == channel {
			continue
		}
		chosen = append(chosen, i)
		if len(chosen) == k {
			break
		}
	}
	if len(chosen) < k {
		return 0, false
	}
	p.nextGroupID++
	gid := p.nextGroupID
	p.reservations[gid] = chosen
	return gid, true
}

// ConsumeReservation activates a previously-reserved group with
// processorSet assigned to its slots in order.
func (p *Pool) ConsumeReservation(groupID uint64, channel int, processorSet []int, priority Priority) (Group, bool) {
	chosen, ok := p.reservations[groupID]
	if !ok || len(chosen) != len(processorSet) {
		return Group{}, false
	}
	delete(p.reservations, groupID)

	p.nextAge++
	age := p.nextAge
	for n, i := range chosen {
		s := &p.slots[i]
		*s = Slot{
			GroupID:      groupID,
			Priority:     priority,
			ChannelIndex: channel,
			ProcessorID:  processorSet[n],
			Active:       true,
			age:          age,
		}
	}
	return Group{ID: groupID, Slots: chosen}, true
}

// ExpireReservations drops every unconsumed reservation. Called once at
// each render-chunk boundary (spec.md: "Unconsumed reservations expire at
// the next render-chunk boundary").
func (p *Pool) ExpireReservations() {
	for k := range p.reservations {
		delete(p.reservations, k)
	}
}

// Demote transitions every slot in the group from foreground to
// background on note_off (spec.md §4.3 "Demotion").
func (p *Pool) Demote(groupID uint64) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.Active && s.GroupID == groupID && s.Priority == PriorityForeground {
			s.Priority = PriorityBackground
		}
	}
}

// MarkFinished records that the voice at slotIndex has finished
// (spec.md §4.4 "Voice finalization"). When every voice in the group has
// finished, the group's slots return to inactive (spec.md §4.3
// "Lifecycle termination").
func (p *Pool) MarkFinished(slotIndex int) {
	if slotIndex < 0 || slotIndex >= len(p.slots) {
		return
	}
	s := &p.slots[slotIndex]
	if !s.Active {
		return
	}
	s.State.Finished = true

	gid := s.GroupID
	for i := range p.slots {
		other := &p.slots[i]
		if other.Active && other.GroupID == gid && !other.State.Finished {
			return // not all finished yet
		}
	}
	for i := range p.slots {
		other := &p.slots[i]
		if other.Active && other.GroupID == gid {
			other.Active = false
			other.Priority = PriorityInactive
		}
	}
}

// Cancel forcibly deactivates every slot in groupID regardless of
// Finished state. Used when a caller must unwind a partially-succeeded
// multi-group reservation (e.g. a stereo pair where one side's
// ReserveGroup call failed after the other's succeeded) — a case
// reserve_group's own atomicity guarantee does not cover since it spans
// two separate calls.
func (p *Pool) Cancel(groupID uint64) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.Active && s.GroupID == groupID {
			s.Active = false
			s.Priority = PriorityInactive
		}
	}
}

// ActiveSlots returns the indices of every currently-active slot, in
// index order. Used by the graph executor to determine which voices a
// voice-rendering processor must iterate (spec.md §4.4 step 1).
func (p *Pool) ActiveSlots() []int {
	out := make([]int, 0, len(p.slots))
	for i := range p.slots {
		if p.slots[i].Active {
			out = append(out, i)
		}
	}
	return out
}

// GroupSize returns how many slots currently belong to groupID.
func (p *Pool) GroupSize(groupID uint64) int {
	n := 0
	for i := range p.slots {
		if p.slots[i].Active && p.slots[i].GroupID == groupID {
			n++
		}
	}
	return n
}
