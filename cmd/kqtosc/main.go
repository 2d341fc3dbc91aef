// Command kqtosc bridges /note/on and /note/off OSC messages onto a
// Player's fire_event control surface, grounded on the teacher's
// osc.NewStandardDispatcher + osc.Server wiring (main.go's SuperCollider
// bridge), repurposed from cpuusage/track_volume status messages to
// note triggers aimed at the render core.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/kunquat/kqtcore/internal/democonfig"
	"github.com/kunquat/kqtcore/internal/events"
	"github.com/kunquat/kqtcore/internal/player"
	"github.com/kunquat/kqtcore/internal/processors"
)

const chunkFrames = 4096

func main() {
	addr := flag.String("addr", ":9000", "UDP address to listen for OSC messages on")
	audioRate := flag.Int("rate", 48000, "audio rate in Hz for the live render loop")
	flag.Parse()

	m := democonfig.LiveModule(*audioRate)
	p, err := player.NewPlayer(m, democonfig.BuildGraph(processors.Left), democonfig.BuildGraph(processors.Right), 64, chunkFrames)
	if err != nil {
		log.Fatalf("kqtosc: %v", err)
	}
	p.Play()

	server := &osc.Server{Addr: *addr, Dispatcher: buildDispatcher(p)}
	go func() {
		log.Printf("kqtosc: listening on %s", *addr)
		if err := server.ListenAndServe(); err != nil {
			log.Fatalf("kqtosc: %v", err)
		}
	}()

	runLive(p, *audioRate)
}

// buildDispatcher maps /note/on ch,note and /note/off ch onto
// Player.FireEvent calls, validated the same way a score-originated
// trigger would be (events.Validate runs inside dispatch regardless of
// origin, spec.md §6.2).
func buildDispatcher(p *player.Player) *osc.StandardDispatcher {
	d := osc.NewStandardDispatcher()
	d.AddMsgHandler("/note/on", func(msg *osc.Message) {
		if len(msg.Arguments) < 2 {
			return
		}
		ch, ok1 := msg.Arguments[0].(int32)
		note, ok2 := msg.Arguments[1].(int32)
		if !ok1 || !ok2 {
			return
		}
		p.FireEvent(int(ch), "note_on", events.Arg{Type: events.ArgInt, Int: int64(note)})
	})
	d.AddMsgHandler("/note/off", func(msg *osc.Message) {
		if len(msg.Arguments) < 1 {
			return
		}
		ch, ok := msg.Arguments[0].(int32)
		if !ok {
			return
		}
		p.FireEvent(int(ch), "note_off", events.Arg{Type: events.ArgNone})
	})
	return d
}

// runLive advances the render core on a wall-clock tick so queued OSC
// events are dispatched promptly; rendered audio is discarded here, as
// audio output backends are a host concern outside the render core
// itself (spec.md's own boundary).
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
