// Package player implements the Master Sequencer, Event Dispatcher, and
// top-level Player control surface from spec.md §4.1, §4.2, and §6.2.
//
// The playback-state fields (PlaybackState, per-column cursors, tempo,
// pattern delay) are grounded on the teacher's internal/model.Model
// IsPlaying/PlaybackRow/PlaybackChain/PlaybackChainRow/PlaybackPhrase/BPM
// fields; the nested track->song->pattern tick traversal is grounded on
// internal/ticks.CalculateTrackTicks's track->chain->phrase summation.
package player

import "fmt"

// scale is a named set of scale-degree offsets within one octave (0-11),
// grounded on internal/modulation.Scale/Scales — spec.md's set_scale
// master event quantizes note_on pitches against one of these tables.
type scale struct {
	Notes []int
}

var scales = map[string]scale{
	"all":        {Notes: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
	"major":      {Notes: []int{0, 2, 4, 5, 7, 9, 11}},
	"minor":      {Notes: []int{0, 2, 3, 5, 7, 8, 10}},
	"dorian":     {Notes: []int{0, 2, 3, 5, 7, 9, 10}},
	"mixolydian": {Notes: []int{0, 2, 4, 5, 7, 9, 10}},
	"pentatonic": {Notes: []int{0, 2, 4, 7, 9}},
	"blues":      {Notes: []int{0, 3, 5, 6, 7, 10}},
	"chromatic":  {Notes: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
}

// validScale reports whether name is a known scale, used by
// dispatchMaster to silently drop a set_scale with an unrecognized name
// rather than corrupt scaleName (spec.md §7 "Argument errors ... silent
// drop").
func validScale(name string) bool {
	_, ok := scales[name]
	return ok
}

// quantizeToScale snaps note to the closest pitch class in the named
// scale rooted at root (0-11), adapted from
// internal/modulation.quantizeToScale.
func quantizeToScale(note int, name string, root int) int {
	sc, ok := scales[name]
	if !ok {
		return note
	}

	shift := 0
	if note < 0 {
		octaves := (-note / 12) + 1
		shift = octaves * 12
		note += shift
	}
	octave := note / 12
	noteInOctave := note % 12

	transposed := (noteInOctave - root + 12) % 12

	minDistance := 12
	closest := transposed
	for _, sn := range sc.Notes {
		d := transposed - sn
		if d < 0 {
			d = -d
		}
		if d < minDistance {
			minDistance = d
			closest = sn
		}
	}

	final := (closest + root) % 12
	return octave*12 + final - shift
}

func scaleNames() []string {
	names := make([]string, 0, len(scales))
	for n := range scales {
		names = append(names, n)
	}
	return names
}

// unknownScaleError builds an error naming a bad scale and the known
// ones. Nothing in the package calls it: set_scale with an unknown name
// is dropped silently by dispatchMaster.
func unknownScaleError(name string) error {
	return fmt.Errorf("player: unknown scale %q (known: %v)", name, scaleNames())
}
