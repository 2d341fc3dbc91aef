// Command kqtmidi mirrors a module's note_on/note_off triggers onto an
// external MIDI output port while the render core plays it, so the
// module can drive outboard hardware or a software synth alongside (or
// instead of) the core's own audio.
package main

import (
	"flag"
	"log"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/kunquat/kqtcore/internal/democonfig"
	"github.com/kunquat/kqtcore/internal/moduleio"
	"github.com/kunquat/kqtcore/internal/player"
	"github.com/kunquat/kqtcore/internal/processors"
	"github.com/kunquat/kqtcore/internal/score"
)

const chunkFrames = 4096

func main() {
	modulePath := flag.String("module", "", "path to a module JSON file (required)")
	portName := flag.String("port", "", "MIDI output port name substring")
	flag.Parse()

	if *modulePath == "" {
		log.Fatal("kqtmidi: -module is required")
	}

	out, err := midi.FindOutPort(*portName)
	if err != nil {
		log.Fatalf("kqtmidi: no MIDI output port found matching %q: %v", *portName, err)
	}
	if err := out.Open(); err != nil {
		log.Fatalf("kqtmidi: opening %s: %v", out.String(), err)
	}
	defer out.Close()

	m, err := moduleio.Load(*modulePath)
	if err != nil {
		log.Fatalf("kqtmidi: %v", err)
	}

	p, err := player.NewPlayer(m, democonfig.BuildGraph(processors.Left), democonfig.BuildGraph(processors.Right), 64, chunkFrames)
	if err != nil {
		log.Fatalf("kqtmidi: %v", err)
	}
	p.OnTrigger = forwardTrigger(out)
	p.Play()

	runLive(p, m.AudioRate)
}

// forwardTrigger builds a Player.OnTrigger callback that turns note_on
// and note_off triggers into raw channel-voice MIDI messages, grounded on
// the teacher's midiconnector.Device.NoteOn/NoteOff
// (out.Send([]byte{0x90|channel, note, velocity}) /
// out.Send([]byte{0x80|channel, note, 0})).
func forwardTrigger(out drivers.Out) func(int, score.Trigger) {
	const defaultVelocity = 100
	lastNote := make(map[int]uint8)

	return func(ch int, trig score.Trigger) {
		midiCh := uint8(ch & 0x0f)
		switch trig.Name {
		case "note_on":
			note := uint8(trig.Arg.Int & 0x7f)
			lastNote[ch] = note
			if err := out.Send([]byte{0x90 | midiCh, note, defaultVelocity}); err != nil {
				log.Printf("kqtmidi: note_on send error: %v", err)
			}
		case "note_off":
			note, ok := lastNote[ch]
			if !ok {
				return
			}
			if err := out.Send([]byte{0x80 | midiCh, note, 0}); err != nil {
				log.Printf("kqtmidi: note_off send error: %v", err)
			}
		}
	}
}

// runLive advances the render core on a wall-clock tick matched to
// audioRate/chunkFrames, discarding rendered audio: audio output backends
// are a host concern outside the render core's scope (spec.md's own
// boundary), and this tool's job is MIDI mirroring, not sound.
func runLive(p *player.Player, audioRate int) {
	period := time.Duration(chunkFrames) * time.Second / time.Duration(audioRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for range ticker.C {
		if p.RenderChunk(chunkFrames) == 0 {
			return
		}
	}
}
