package player

import (
	"fmt"
	"sync"

	"github.com/kunquat/kqtcore/internal/events"
	"github.com/kunquat/kqtcore/internal/graph"
	"github.com/kunquat/kqtcore/internal/processors"
	"github.com/kunquat/kqtcore/internal/score"
	"github.com/kunquat/kqtcore/internal/tstamp"
	"github.com/kunquat/kqtcore/internal/voice"
	"github.com/kunquat/kqtcore/internal/workbuf"
)

// externalEvent is a host-injected trigger awaiting the next chunk
// boundary (spec.md §6.2 fire_event, §5 "External-event queue ... producer
// ... render thread consumes at chunk start").
type externalEvent struct {
	Channel int
	Trig    score.Trigger
}

// Player is the top-level render-core object: it owns the immutable
// Module, the voice pool, the twin left/right device graphs, and the
// Master Sequencer, and exposes the host control surface from spec.md
// §6.2. Per §6.3, deserializing a persisted module is an external
// concern; Player's constructor accepts an already-parsed score.Module
// and pre-built device graphs rather than raw bytes.
type Player struct {
	Module    score.Module
	AudioRate int

	pool *voice.Pool

	graphL, graphR *graph.Graph
	arenaL, arenaR *workbuf.Arena
	execL, execR   *graph.Executor

	masterVolume  *processors.Volume // graphL's master sink
	masterVolumeR *processors.Volume // graphR's master sink; kept in lockstep with masterVolume so set_volume affects both channels equally

	channels  []*channelRuntime
	scaleName string
	envVars   map[string]float64

	seq *Sequencer

	// OnTrigger, if set, is called synchronously for every trigger that
	// passes argument validation and its channel's conditional-execution
	// gate, score-originated or host-injected alike (spec.md §6.2's
	// fire_event makes no distinction). Used by cmd/kqtmidi to mirror
	// the render core's note events onto an external MIDI output;
	// nil by default so RenderChunk has no
	// observation overhead when nothing is listening.
	OnTrigger func(channel int, trig score.Trigger)

	mu        sync.Mutex
	extQueue  []externalEvent
	oomSteps  int // fake_out_of_memory countdown; -1 = disabled
	chunkSize int
}

// defaultADSR gives every note a fixed envelope shape. spec.md's score
// entities carry no per-note ADSR parameters (that is device
// configuration, out of score's scope per §3.1); a complete host would
// source these from the audio unit's processor parameters, which this
// implementation does not model beyond the processors package's direct
// kind/waveform selection.
const (
	defaultAttackMS  = 5.0
	defaultDecayMS   = 80.0
	defaultReleaseMS = 200.0
)

// NewPlayer constructs a Player from an already-validated Module and a
// pre-built pair of structurally-identical left/right device graphs
// (spec.md §3.2's "device graph description" lives in the graph package;
// see DESIGN.md "Stereo rendering").
func NewPlayer(m score.Module, graphL, graphR *graph.Graph, poolSize, chunkSize int) (*Player, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("player: invalid module: %w", err)
	}
	if m.AudioRate <= 0 {
		return nil, fmt.Errorf("player: invalid audio rate %d", m.AudioRate)
	}

	p := &Player{
		Module:    m,
		AudioRate: m.AudioRate,
		pool:      voice.NewPool(poolSize),
		graphL:    graphL,
		graphR:    graphR,
		arenaL:    workbuf.NewArena(chunkSize),
		arenaR:    workbuf.NewArena(chunkSize),
		scaleName: "all",
		envVars:   make(map[string]float64),
		chunkSize: chunkSize,
		oomSteps:  -1,
	}
	p.execL = graph.NewExecutor(graphL, p.arenaL, p.pool, p.AudioRate)
	p.execR = graph.NewExecutor(graphR, p.arenaR, p.pool, p.AudioRate)

	if masterNode := graphL.Node(graphL.MasterSink()); masterNode != nil {
		if vol, ok := masterNode.Mixed.(*processors.Volume); ok {
			p.masterVolume = vol
		}
	}
	if masterNode := graphR.Node(graphR.MasterSink()); masterNode != nil {
		if vol, ok := masterNode.Mixed.(*processors.Volume); ok {
			p.masterVolumeR = vol
		}
	}
	if p.masterVolume == nil {
		p.masterVolume = &processors.Volume{} // harmless no-op sink if the graph's master isn't a Volume node
	}
	if p.masterVolumeR == nil {
		p.masterVolumeR = &processors.Volume{}
	}

	p.channels = make([]*channelRuntime, score.KQTChannelsMax)
	for i := range p.channels {
		p.channels[i] = newChannelRuntime(m.ChannelDefaults[i].AudioUnitIndex)
	}

	initialBPM := 120.0
	if len(m.Songs) > 0 {
		initialBPM = m.Songs[0].InitialTempoBPM
	}
	p.seq = newSequencer(initialBPM)

	return p, nil
}

func (p *Player) channel(i int) *channelRuntime {
	if i < 0 || i >= len(p.channels) {
		i = 0
	}
	return p.channels[i]
}

// SetAudioRate implements spec.md §6.2: must not be called during render.
// It clears both work-buffer arenas (at the unchanged chunk size) and
// rebuilds the executors at the new rate. Processor-held state, such as
// a LowPass filter's running value, and voice states are not reset.
func (p *Player) SetAudioRate(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("player: invalid audio rate %d", hz)
	}
	p.AudioRate = hz
	p.arenaL.Resize(p.chunkSize)
	p.arenaR.Resize(p.chunkSize)
	p.execL = graph.NewExecutor(p.graphL, p.arenaL, p.pool, hz)
	p.execR = graph.NewExecutor(p.graphR, p.arenaR, p.pool, hz)
	return nil
}

// Play implements spec.md §6.2's play(): transitions playback to
// PlayingModule from track 0, system 0.
func (p *Player) Play() {
	p.seq.SetPlaybackState(PlayingModule, Position{})
}

// Stop implements spec.md §6.2's stop().
func (p *Player) Stop() {
	p.seq.state = Stopped
}

// SetPosition implements spec.md §6.2 set_position: sets a pending goto.
func (p *Player) SetPosition(track, system int, row tstamp.Tstamp) {
	p.seq.RequestGoto(track, system, row)
}

// FireEvent implements spec.md §6.2 fire_event: enqueues an externally
// (host-) injected trigger for processing at the start of the next
// RenderChunk call. Externally-injected events are otherwise dispatched
// identically to score-originated ones (spec.md §4.2 "External vs.
// internal events" only distinguishes them for rate-limiting, which this
// implementation does not impose).
func (p *Player) FireEvent(channel int, name string, arg events.Arg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extQueue = append(p.extQueue, externalEvent{
		Channel: channel,
		Trig:    score.Trigger{Name: name, Arg: arg},
	})
}

// FakeOutOfMemory implements spec.md §6.2 fake_out_of_memory: the next
// `steps` RenderChunk calls render normally, and every call after them
// returns 0 frames rendered until FakeOutOfMemory is called again.
// steps < 0 disables the fault.
func (p *Player) FakeOutOfMemory(steps int) {
	p.oomSteps = steps
}

func (p *Player) drainExternalEvents() {
	p.mu.Lock()
	queued := p.extQueue
	p.extQueue = nil
	p.mu.Unlock()

	for _, e := range queued {
		p.dispatch(e.Channel, e.Trig)
	}
}

// RenderChunk implements spec.md §4.1's play(frame_count) -> frames_rendered,
// the audio-rate render-chunk algorithm. It is distinct from the Play()
// control-surface method above, which only toggles playback state.
func (p *Player) RenderChunk(frameCount int) int {
	if p.seq.state == Stopped {
		return 0
	}
	if p.oomSteps == 0 {
		return 0 // spec.md §7: OOM at chunk start returns 0 frames rendered
	}
	if p.oomSteps > 0 {
		p.oomSteps--
	}

	p.execL.BeginChunk()
	p.execR.BeginChunk()
	p.drainExternalEvents()

	rendered := 0
	remaining := frameCount

	for remaining > 0 {
		if p.seq.paused {
			p.execL.RenderRange(rendered, remaining)
			p.execR.RenderRange(rendered, remaining)
			rendered += remaining
			remaining = 0
			break
		}

		if p.seq.pendingGoto != nil {
			p.applyGoto()
			if p.seq.state == Stopped {
				break
			}
		}

		pattern, ok := p.currentPattern()
		if !ok {
			p.seq.state = Stopped
			break
		}

		delayActive := p.seq.patternDelay.Cmp(tstamp.Zero) > 0
		delta, isPatternEnd := p.nextEventDelta(pattern)

		framesToEvent := int(p.seq.tempo.FramesForSpan(delta, p.AudioRate))
		step := framesToEvent
		if step > remaining {
			step = remaining
		}
		if step > 0 {
			p.execL.RenderRange(rendered, step)
			p.execR.RenderRange(rendered, step)
			rendered += step
			remaining -= step
		}

		if step < framesToEvent {
			// Frame budget exhausted before reaching the next event;
			// persist the partial time advance so the next RenderChunk
			// call resumes from the correct position instead of
			// re-rendering the same interval.
			consumed := p.seq.tempo.TstampForFrames(int64(step), p.AudioRate)
			p.seq.tempo.Advance(consumed)
			p.advanceChannelRamps(consumed)
			p.seq.pos.Row = p.seq.pos.Row.Add(consumed)
			if delayActive {
				p.seq.patternDelay = p.seq.patternDelay.Sub(consumed)
			}
			break
		}

		p.seq.tempo.Advance(delta)
		p.advanceChannelRamps(delta)
		if delayActive {
			p.seq.patternDelay = tstamp.Zero
			continue
		}

		p.seq.pos.Row = p.seq.pos.Row.Add(delta)

		if isPatternEnd {
			p.advancePosition()
			continue
		}

		p.dispatchDueTriggers(pattern)
	}

	return rendered
}

func (p *Player) currentPattern() (score.Pattern, bool) {
	if p.seq.pos.DirectPattern != nil {
		return p.Module.PatternFor(*p.seq.pos.DirectPattern)
	}
	if p.seq.pos.Track < 0 || p.seq.pos.Track >= len(p.Module.Tracks) {
		return score.Pattern{}, false
	}
	songIdx := p.Module.Tracks[p.seq.pos.Track]
	if songIdx < 0 || songIdx >= len(p.Module.Songs) {
		return score.Pattern{}, false
	}
	song := p.Module.Songs[songIdx]
	if p.seq.pos.System < 0 || p.seq.pos.System >= len(song.Instances) {
		return score.Pattern{}, false
	}
	return p.Module.PatternFor(song.Instances[p.seq.pos.System])
}

// nextEventDelta finds the musical-time distance to the next thing that
// must interrupt rendering: a trigger, the pattern's end, or (spec.md
// §4.1's master-queue "tempo slide end" event, omitted from the
// distillation's event list but required so a slide's bpm doesn't keep
// changing past its own length) the end of an in-progress tempo slide.
// Capping spans at the slide's end keeps each call to
// tempoState.FramesForSpan inside a single affine segment of bpm.
func (p *Player) nextEventDelta(pattern score.Pattern) (tstamp.Tstamp, bool) {
	if p.seq.patternDelay.Cmp(tstamp.Zero) > 0 {
		return p.seq.patternDelay, false
	}
	best := pattern.Length.Sub(p.seq.pos.Row)
	isPatternEnd := true
	for _, col := range pattern.Columns {
		idx := p.seq.cgiters[col.Channel]
		if idx < len(col.Triggers) {
			d := col.Triggers[idx].Time.Sub(p.seq.pos.Row)
			if d.Less(best) {
				best = d
				isPatternEnd = false
			}
		}
	}
	if p.seq.tempo.sliding() {
		if remaining := p.seq.tempo.Length.Sub(p.seq.tempo.Elapsed); remaining.Less(best) {
			best = remaining
			isPatternEnd = false
		}
	}
	return best, isPatternEnd
}

// advanceChannelRamps steps every channel's in-progress force/control-variable
// slides (slide_force, slide_cv_value) forward by dt, the same musical-time
// span the master sequencer just advanced, and pushes the new force value
// into any currently-sounding voices the way set_force does.
func (p *Player) advanceChannelRamps(dt tstamp.Tstamp) {
	for _, rt := range p.channels {
		if rt.force.sliding() {
			rt.force.Advance(dt)
			p.forEachActiveState(rt, func(s *voice.State) { s.Force = rt.force.Current })
		}
		for name, r := range rt.cvSlides {
			if !r.sliding() {
				continue
			}
			r.Advance(dt)
			rt.cv[name] = r.Current
		}
	}
}

// dispatchDueTriggers dispatches every trigger across all channel columns
// scheduled exactly at the current row, in column order (spec.md §5
// "Triggers at equal frame offsets are processed in column-order then
// row-order").
func (p *Player) dispatchDueTriggers(pattern score.Pattern) {
	for _, col := range pattern.Columns {
		idx := p.seq.cgiters[col.Channel]
		for idx < len(col.Triggers) && col.Triggers[idx].Time.Cmp(p.seq.pos.Row) == 0 {
			p.dispatch(col.Channel, col.Triggers[idx])
			idx++
		}
		p.seq.cgiters[col.Channel] = idx
	}
}

func (p *Player) advancePosition() {
	if p.seq.pos.DirectPattern != nil {
		if p.seq.infinite {
			p.resetToRowZero()
			return
		}
		p.seq.state = Stopped
		return
	}

	songIdx := p.Module.Tracks[p.seq.pos.Track]
	song := p.Module.Songs[songIdx]

	p.seq.pos.System++
	if p.seq.pos.System >= len(song.Instances) {
		if p.seq.state == PlayingPattern {
			if !p.seq.infinite {
				p.seq.state = Stopped
				return
			}
			p.seq.pos.System = 0
		} else {
			p.seq.pos.System = 0
			p.seq.pos.Track++
			if p.seq.pos.Track >= len(p.Module.Tracks) {
				if !p.seq.infinite {
					p.seq.state = Stopped
					return
				}
				p.seq.pos.Track = 0
			}
		}
	}
	p.resetToRowZero()
}

func (p *Player) resetToRowZero() {
	p.seq.pos.Row = tstamp.Zero
	for i := range p.seq.cgiters {
		p.seq.cgiters[i] = 0
	}
	for k := range p.seq.jumpCounters {
		if k.Track == p.seq.pos.Track && k.System == p.seq.pos.System {
			delete(p.seq.jumpCounters, k)
		}
	}
}

func (p *Player) applyGoto() {
	g := p.seq.pendingGoto
	p.seq.pendingGoto = nil
	p.seq.pos.Track = g.Track
	p.seq.pos.System = g.System
	p.seq.pos.Row = g.Row
	p.seq.pos.DirectPattern = nil

	pattern, ok := p.currentPattern()
	if !ok {
		p.seq.state = Stopped
		return
	}
	for i := range p.seq.cgiters {
		p.seq.cgiters[i] = 0
	}
	for _, col := range pattern.Columns {
		idx := 0
		for idx < len(col.Triggers) && col.Triggers[idx].Time.Less(g.Row) {
			idx++
		}
		p.seq.cgiters[col.Channel] = idx
	}
}

func (p *Player) noteOn(ch int, rt *channelRuntime, rawNote int) {
	if rt.bypass {
		return
	}
	note := rt.resolveNote(rawNote, p.scaleName)

	procsL := p.graphL.VoiceProcessorIDsForAudioUnit(rt.audioUnitIndex)
	procsR := p.graphR.VoiceProcessorIDsForAudioUnit(rt.audioUnitIndex)
	if len(procsL) == 0 || len(procsR) == 0 {
		return
	}

	groupL, okL := p.pool.ReserveGroup(ch, procsL, voice.PriorityForeground)
	groupR, okR := p.pool.ReserveGroup(ch, procsR, voice.PriorityForeground)
	if !okL || !okR {
		if okL {
			p.pool.Cancel(groupL.ID)
		}
		if okR {
			p.pool.Cancel(groupR.ID)
		}
		return
	}

	rt.group = &stereoGroup{L: groupL, R: groupR}
	rt.hasGroup = true

	attack := int(defaultAttackMS * float64(p.AudioRate) / 1000.0)
	decay := int(defaultDecayMS * float64(p.AudioRate) / 1000.0)
	release := int(defaultReleaseMS * float64(p.AudioRate) / 1000.0)

	triggerState := func(s *voice.State) {
		s.Trigger(note, 1.0, attack, decay, release, rt.sustain, p.AudioRate)
		s.Force = rt.force.Current
		s.Pan = rt.pan
		s.ArpNotes = rt.arpNotes
		s.ArpSpeed = rt.arpSpeed
		s.VibSpeed = rt.vibSpeed
		s.VibDepth = rt.vibDepth
		s.TremSpeed = rt.tremSpeed
		s.TremDepth = rt.tremDepth
	}
	for _, i := range groupL.Slots {
		triggerState(&p.pool.Slot(i).State)
	}
	for _, i := range groupR.Slots {
		triggerState(&p.pool.Slot(i).State)
	}
}

func (p *Player) noteOff(rt *channelRuntime) {
	if !rt.hasGroup {
		return
	}
	p.pool.Demote(rt.group.L.ID)
	p.pool.Demote(rt.group.R.ID)
	for _, i := range rt.group.L.Slots {
		p.pool.Slot(i).State.Release()
	}
	for _, i := range rt.group.R.Slots {
		p.pool.Slot(i).State.Release()
	}
}

// MasterOutputs returns the left/right master-sink work buffers for the
// current chunk (spec.md §6.1 "audio_buffer(channel) -> &[f32]").
func (p *Player) MasterOutputs() (left, right *workbuf.Buffer) {
	return p.execL.MasterOutput(), p.execR.MasterOutput()
}
