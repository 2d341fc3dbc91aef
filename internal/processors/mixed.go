package processors

import (
	"math"

	"github.com/kunquat/kqtcore/internal/workbuf"
)

// Sum is a mixed processor that additively merges every input into its
// output — the role spec.md §4.4 step 3d describes generically as
// "Merge any sibling work buffers writing to the same receiver using
// additive mixing". Used for the implicit master sink and for any
// audio-unit bus that combines several voice-node outputs.
type Sum struct{}

func (Sum) RenderMixed(in []*workbuf.Buffer, out *workbuf.Buffer, offset, count, sampleRate int) {
	for _, b := range in {
		workbuf.MixAdd(out, b, offset, count)
	}
}

// Volume is a mixed processor applying a single decibel gain to its
// (single) input, modeling spec.md's set_volume master event and the teacher's Model.PregainDB/PostgainDB/BiasDB fields
// (internal/model/model.go).
type Volume struct {
	GainDB float64
}

func (v Volume) RenderMixed(in []*workbuf.Buffer, out *workbuf.Buffer, offset, count, sampleRate int) {
	if len(in) == 0 {
		return
	}
	gain := float32(math.Pow(10, v.GainDB/20.0))
	src := in[0]
	if src == nil || !src.IsValid {
		return
	}
	end := offset + count
	if end > len(out.Data) {
		end = len(out.Data)
	}
	if end > len(src.Data) {
		end = len(src.Data)
	}
	for i := offset; i < end; i++ {
		out.Data[i] += src.Data[i] * gain
	}
	out.IsValid = true
}

// LowPass is a mixed processor applying a one-pole low-pass filter to its
// (single) input, grounded on lixenwraith/vi-fighter's
// TonalVoice.generateBass one-pole filter, adapted from per-voice scratch
// to a single persistent device-state field (spec.md §3.2 "Device state
// ... owned by a table keyed by device id").
type LowPass struct {
	CutoffHz float64
	state    float64
}

func (l *LowPass) RenderMixed(in []*workbuf.Buffer, out *workbuf.Buffer, offset, count, sampleRate int) {
	if len(in) == 0 {
		return
	}
	src := in[0]
	if src == nil || !src.IsValid {
		return
	}
	alpha := l.CutoffHz / (l.CutoffHz + float64(sampleRate)/(2*math.Pi))
	end := offset + count
	if end > len(out.Data) {
		end = len(out.Data)
	}
	if end > len(src.Data) {
		end = len(src.Data)
	}
	for i := offset; i < end; i++ {
		l.state += alpha * (float64(src.Data[i]) - l.state)
		out.Data[i] += float32(l.state)
	}
	out.IsValid = true
}
