package player

import (
	"github.com/kunquat/kqtcore/internal/events"
	"github.com/kunquat/kqtcore/internal/score"
	"github.com/kunquat/kqtcore/internal/tstamp"
	"github.com/kunquat/kqtcore/internal/voice"
)

// tstampFromArg decodes a validated ArgTstamp event argument back into a
// tstamp.Tstamp. events.Arg carries the raw beats/remainder pair instead
// of a tstamp.Tstamp value to avoid events depending on the player-layer
// timing package (see events.Arg's own doc comment).
func tstampFromArg(a events.Arg) tstamp.Tstamp {
	return tstamp.New(a.TstampBeats, a.TstampRem)
}

// dispatch routes one trigger to its scope handler (spec.md §4.2),
// enforcing argument validation and the per-channel conditional-execution
// stack before any side effect runs. ch is the score channel index the
// trigger was scheduled on; general/control/master events still read the
// dispatching channel's conditional stack ("per general state" in
// spec.md, realized here as one state per channel column).
func (p *Player) dispatch(ch int, trig score.Trigger) {
	rt := p.channel(ch)

	if trig.Name == "?" || trig.Name == "?if" || trig.Name == "?else" || trig.Name == "?end" {
		if events.Validate(trig.Name, trig.Arg) {
			p.dispatchConditional(rt, trig)
		}
		return
	}
	if !rt.cond.ShouldDispatch() {
		return
	}
	if !events.Validate(trig.Name, trig.Arg) {
		return // argument error: silent drop, spec.md §7
	}

	desc, ok := events.Lookup(trig.Name)
	if !ok {
		return
	}

	if p.OnTrigger != nil {
		p.OnTrigger(ch, trig)
	}

	switch desc.Kind {
	case events.KindMaster:
		p.dispatchMaster(ch, trig)
	case events.KindChannel:
		p.dispatchChannel(ch, rt, trig)
	case events.KindAudioUnit:
		p.dispatchAudioUnit(ch, rt, trig)
	case events.KindControl:
		p.dispatchControl(rt, trig)
	case events.KindGeneral:
		p.dispatchGeneral(rt, trig)
	}
}

func (p *Player) dispatchConditional(rt *channelRuntime, trig score.Trigger) {
	switch trig.Name {
	case "?":
		rt.cond.Push(trig.Arg.Bool)
	case "?if":
		rt.cond.Push(trig.Arg.Bool)
	case "?else":
		rt.cond.Else()
	case "?end":
		rt.cond.End()
	}
}

func (p *Player) dispatchGeneral(rt *channelRuntime, trig score.Trigger) {
	switch trig.Name {
	case "comment", "call":
		// No render-side effect; call's subroutine-invocation semantics
		// are a score-authoring concern outside the core's scope.
	}
}

func (p *Player) dispatchControl(rt *channelRuntime, trig score.Trigger) {
	switch trig.Name {
	case "pause":
		p.seq.Pause()
	case "resume":
		p.seq.Resume()
	case "infinite_on":
		p.seq.infinite = true
	case "infinite_off":
		p.seq.infinite = false
	case "play_pattern":
		ref := score.PatternInstanceRef{PatternID: trig.Arg.PatternID, InstanceID: trig.Arg.InstanceID}
		p.seq.SetPlaybackState(PlayingPattern, Position{DirectPattern: &ref})
	case "env_set_var_name":
		rt.names.Set(events.ActiveNameEnvVar, trig.Arg.String)
	case "env_set_var":
		name := rt.names.Get(events.ActiveNameEnvVar)
		p.envVars[name] = trig.Arg.Float
	}
}

func (p *Player) dispatchMaster(ch int, trig score.Trigger) {
	switch trig.Name {
	case "set_tempo":
		p.seq.tempo.SetImmediate(trig.Arg.Float)
	case "slide_tempo":
		p.seq.tempo.SlideTo(trig.Arg.Float)
	case "slide_tempo_length":
		p.seq.tempo.SetLength(tstampFromArg(trig.Arg))
	case "set_volume":
		p.masterVolume.GainDB = trig.Arg.Float
		p.masterVolumeR.GainDB = trig.Arg.Float
	case "pattern_delay":
		p.seq.patternDelay = tstampFromArg(trig.Arg)
	case "set_jump_row":
		p.seq.jumpTargetRow = tstampFromArg(trig.Arg)
	case "set_jump_pat_inst":
		ref := score.PatternInstanceRef{PatternID: trig.Arg.PatternID, InstanceID: trig.Arg.InstanceID}
		p.seq.jumpTargetPattern = &ref
	case "set_jump_counter":
		p.seq.jumpCounterSeed = int(trig.Arg.Int)
	case "jump":
		p.fireJump(ch, trig)
	case "set_scale":
		if validScale(trig.Arg.String) {
			p.scaleName = trig.Arg.String
		}
	}
}

func (p *Player) fireJump(ch int, trig score.Trigger) {
	key := jumpKey{Track: p.seq.pos.Track, System: p.seq.pos.System, Channel: ch, Row: p.seq.pos.Row}
	count, seeded := p.seq.jumpCounters[key]
	if !seeded {
		count = p.seq.jumpCounterSeed
	}
	if count == 0 {
		return // exhausted: inactive until the containing pattern is re-entered
	}
	if count > 0 {
		count--
	}
	p.seq.jumpCounters[key] = count
	// Jumps in this implementation retarget the row within the current
	// track/system; a jump to a different pattern instance is requested
	// via set_jump_pat_inst but not separately resolved to a track/system
	// pair (see DESIGN.md "Jump targeting").
	p.seq.RequestGoto(p.seq.pos.Track, p.seq.pos.System, p.seq.jumpTargetRow)
}

func (p *Player) dispatchChannel(ch int, rt *channelRuntime, trig score.Trigger) {
	switch trig.Name {
	case "note_on":
		p.noteOn(ch, rt, int(trig.Arg.Int))
	case "note_off":
		p.noteOff(rt)
	case "hit":
		p.noteOn(ch, rt, int(trig.Arg.Int))
		p.noteOff(rt)
	case "set_au_input":
		rt.audioUnitIndex = int(trig.Arg.Int)
	case "set_force":
		rt.force.SetImmediate(trig.Arg.Float)
		p.forEachActiveState(rt, func(s *voice.State) { s.Force = rt.force.Current })
	case "slide_force":
		rt.force.SlideTo(trig.Arg.Float)
	case "slide_force_length":
		rt.force.SetLength(tstampFromArg(trig.Arg))
	case "set_panning":
		rt.pan = trig.Arg.Float
		p.forEachActiveState(rt, func(s *voice.State) { s.Pan = rt.pan })
	case "arpeggio_on":
		rt.arpOn = true
		rt.arpNotes = []int{0, 4, 7}
		p.forEachActiveState(rt, func(s *voice.State) { s.ArpNotes = rt.arpNotes })
	case "arpeggio_off":
		rt.arpOn = false
		rt.arpNotes = nil
		p.forEachActiveState(rt, func(s *voice.State) { s.ArpNotes = nil })
	case "arpeggio_speed":
		rt.arpSpeed = trig.Arg.Float
		p.forEachActiveState(rt, func(s *voice.State) { s.ArpSpeed = rt.arpSpeed })
	case "vibrato_speed":
		rt.vibSpeed = trig.Arg.Float
		p.forEachActiveState(rt, func(s *voice.State) { s.VibSpeed = rt.vibSpeed })
	case "vibrato_depth":
		rt.vibDepth = trig.Arg.Float
		p.forEachActiveState(rt, func(s *voice.State) { s.VibDepth = rt.vibDepth })
	case "tremolo_speed":
		rt.tremSpeed = trig.Arg.Float
		p.forEachActiveState(rt, func(s *voice.State) { s.TremSpeed = rt.tremSpeed })
	case "tremolo_depth":
		rt.tremDepth = trig.Arg.Float
		p.forEachActiveState(rt, func(s *voice.State) { s.TremDepth = rt.tremDepth })
	case "set_stream_name":
		rt.names.Set(events.ActiveNameStream, trig.Arg.String)
	case "carry_on":
		rt.carry = true
	case "carry_off":
		rt.carry = false
	}
}

func (p *Player) dispatchAudioUnit(ch int, rt *channelRuntime, trig score.Trigger) {
	switch trig.Name {
	case "set_sustain":
		rt.sustain = trig.Arg.Float
		p.forEachActiveState(rt, func(s *voice.State) { s.Sustain = rt.sustain })
	case "set_cv_name":
		rt.names.Set(events.ActiveNameControlVar, trig.Arg.String)
	case "set_cv_value":
		name := rt.names.Get(events.ActiveNameControlVar)
		rt.cv[name] = trig.Arg.Float
		delete(rt.cvSlides, name) // an explicit set cancels any in-flight slide
	case "slide_cv_value":
		name := rt.names.Get(events.ActiveNameControlVar)
		r := rt.cvSlideFor(name)
		r.SlideTo(trig.Arg.Float)
		rt.cv[name] = r.Current // a length-less slide collapses to an immediate set
	case "slide_cv_value_length":
		name := rt.names.Get(events.ActiveNameControlVar)
		rt.cvSlideFor(name).SetLength(tstampFromArg(trig.Arg))
	case "bypass_on":
		rt.bypass = true
	case "bypass_off":
		rt.bypass = false
	}
}

// forEachActiveState applies fn to every active voice.State belonging to
// rt's current stereo group, used by events that must update an
// already-sounding note (force, panning, modulation depth) rather than
// only affecting the next note_on.
func (p *Player) forEachActiveState(rt *channelRuntime, fn func(s *voice.State)) {
	if !rt.hasGroup {
		return
	}
	for _, i := range rt.group.L.Slots {
		fn(&p.pool.Slot(i).State)
	}
	for _, i := range rt.group.R.Slots {
		fn(&p.pool.Slot(i).State)
	}
}
