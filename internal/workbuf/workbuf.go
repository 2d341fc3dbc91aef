// Package workbuf implements the per-edge work buffers and the chunk
// arena that backs device graph execution (spec.md §4.4).
//
// A work buffer holds one audio-rate edge's samples for the current
// render chunk, plus metadata: IsValid (a producer has written it this
// chunk), IsFinal (the producing voice group will not write again), and
// ConstStartIndex (the index from which the remaining signal is constant,
// an optimization for steady-state or silent tails). Consumers must never
// read an unwritten buffer as anything but silence (spec.md §3.3
// invariant 5).
package workbuf

// Buffer is one chunk's worth of float32 samples for a single DAG edge.
type Buffer struct {
	Data            []float32
	IsValid         bool
	IsFinal         bool
	ConstStartIndex int // samples at/after this index equal Data[ConstStartIndex-1] if ConstStartIndex>0, or are silence if ConstStartIndex==0 and !IsValid
}

// New allocates a cleared buffer of the given frame count.
func New(frames int) *Buffer {
	return &Buffer{Data: make([]float32, frames)}
}

// Clear resets b to the cleared (silent) state without reallocating,
// matching modplayer's per-chunk zero-fill of its mix buffer
// (chriskillpack/modplayer.mixChannels zeroes `out` before accumulating).
func (b *Buffer) Clear() {
	for i := range b.Data {
		b.Data[i] = 0
	}
	b.IsValid = false
	b.IsFinal = false
	b.ConstStartIndex = 0
}

// Resize grows or shrinks b's backing slice to frames, reusing capacity
// when possible. Called once per render-rate change, never per chunk.
func (b *Buffer) Resize(frames int) {
	if cap(b.Data) >= frames {
		b.Data = b.Data[:frames]
	} else {
		b.Data = make([]float32, frames)
	}
	b.Clear()
}

// Silence reports whether the buffer may be treated as all-zero: either
// it was never written this chunk, or its constant tail starts at index 1
// (every sample equals Data[0]) and that constant value is zero.
func (b *Buffer) Silence() bool {
	if !b.IsValid {
		return true
	}
	if b.ConstStartIndex == 1 && len(b.Data) > 0 {
		return b.Data[0] == 0
	}
	return false
}

// MixAdd adds src into dst over [offset, offset+count), the additive
// mixing step executor uses to merge sibling writers to the same receiver
// (spec.md §4.4 step 3d). ConstStartIndex is preserved only when both
// operands are constant over the overlapping range, mirroring spec.md's
// "const_start_index is preserved when both operands are constant".
func MixAdd(dst, src *Buffer, offset, count int) {
	if src == nil || !src.IsValid {
		return
	}
	end := offset + count
	if end > len(dst.Data) {
		end = len(dst.Data)
	}
	if end > len(src.Data) {
		end = len(src.Data)
	}
	for i := offset; i < end; i++ {
		dst.Data[i] += src.Data[i]
	}
	dst.IsValid = true

	dstConst := dst.ConstStartIndex > 0 && dst.ConstStartIndex <= offset
	srcConst := src.ConstStartIndex > 0 && src.ConstStartIndex <= offset
	if dstConst && srcConst {
		if dst.ConstStartIndex < src.ConstStartIndex {
			dst.ConstStartIndex = src.ConstStartIndex
		}
	} else {
		dst.ConstStartIndex = 0
	}
}

// Arena hands out and reuses Buffers for one render chunk, the way the
// executor needs one buffer per DAG edge without reallocating per chunk.
type Arena struct {
	frames  int
	buffers map[string]*Buffer
}

// NewArena creates an arena sized for the given chunk frame count.
func NewArena(frames int) *Arena {
	return &Arena{frames: frames, buffers: make(map[string]*Buffer)}
}

// Get returns the buffer for edge key, allocating it on first use.
func (a *Arena) Get(key string) *Buffer {
	b, ok := a.buffers[key]
	if !ok {
		b = New(a.frames)
		a.buffers[key] = b
	}
	return b
}

// ResetForChunk clears every buffer in the arena, called once at the
// start of each render chunk (spec.md §4.4 step 1 implicitly requires a
// clean slate so "any missing producer's output is treated as silence").
func (a *Arena) ResetForChunk() {
	for _, b := range a.buffers {
		b.Clear()
	}
}

// Resize changes the arena's chunk frame count, resizing every buffer.
// Called when the audio rate or max chunk size changes, never mid-chunk.
func (a *Arena) Resize(frames int) {
	a.frames = frames
	for _, b := range a.buffers {
		b.Resize(frames)
	}
}
