package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantizeToScaleSnapsToNearest(t *testing.T) {
	// C major, root 0: note 61 (C#4) should snap to 60 (C4) or 62 (D4),
	// whichever is closer — both 1 semitone away, tie goes to the first
	// scale degree encountered (C).
	assert.Equal(t, 60, quantizeToScale(61, "major", 0))
}

func TestQuantizeToScaleAlreadyInScaleIsUnchanged(t *testing.T) {
	assert.Equal(t, 64, quantizeToScale(64, "major", 0)) // E4 is in C major
}

func TestQuantizeToScaleUnknownNameIsNoop(t *testing.T) {
	assert.Equal(t, 61, quantizeToScale(61, "nonexistent", 0))
}

func TestQuantizeToScaleHandlesNegativeNotes(t *testing.T) {
	// -1 is the B in the octave below note 0; quantizing to major at root 0
	// should not panic and should return a value in the correct octave.
	got := quantizeToScale(-1, "major", 0)
	assert.True(t, got >= -12 && got < 12)
}

func TestQuantizeToScaleRespectsRoot(t *testing.T) {
	// Root shifted to D (2): scale degrees become D major's notes.
	got := quantizeToScale(61, "major", 2)
	assert.Contains(t, scales["major"].Notes, (got-2+120)%12)
}

func TestValidScale(t *testing.T) {
	assert.True(t, validScale("minor"))
	assert.False(t, validScale("not-a-scale"))
}
