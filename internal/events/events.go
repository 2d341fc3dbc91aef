// Package events implements the event-name registry and trigger argument
// validation described in spec.md §4.2.
//
// The registry is a read-only compile-time table (spec.md §9 "Event-name
// registry") mapping an event name to its kind and argument type. It is
// decoded once at package init from an embedded JSON manifest, the way
// internal/storage decodes saves with jsoniter in the teacher repo.
package events

import (
	_ "embed"
	"log"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind classifies which scope an event is dispatched to.
type Kind int

const (
	KindMaster Kind = iota
	KindChannel
	KindAudioUnit
	KindControl
	KindGeneral
)

func (k Kind) String() string {
	switch k {
	case KindMaster:
		return "master"
	case KindChannel:
		return "channel"
	case KindAudioUnit:
		return "audio_unit"
	case KindControl:
		return "control"
	case KindGeneral:
		return "general"
	default:
		return "unknown"
	}
}

// ArgType is the value type an event's argument is validated against.
type ArgType int

const (
	ArgNone ArgType = iota
	ArgBool
	ArgInt
	ArgFloat
	ArgTstamp
	ArgString
	ArgPatternInstRef
	ArgRealtime
)

// Descriptor is one registry entry: name, kind, and argument type.
type Descriptor struct {
	Name    string  `json:"name"`
	Kind    Kind    `json:"-"`
	KindStr string  `json:"kind"`
	ArgType ArgType `json:"-"`
	ArgStr  string  `json:"arg_type"`
}

//go:embed registry.json
var registryManifest []byte

var registry map[string]Descriptor

func init() {
	var raw []Descriptor
	if err := jsonAPI.Unmarshal(registryManifest, &raw); err != nil {
		log.Fatalf("events: failed to decode registry manifest: %v", err)
	}
	registry = make(map[string]Descriptor, len(raw))
	for _, d := range raw {
		d.Kind = parseKind(d.KindStr)
		d.ArgType = parseArgType(d.ArgStr)
		registry[d.Name] = d
	}
}

func parseKind(s string) Kind {
	switch s {
	case "master":
		return KindMaster
	case "channel":
		return KindChannel
	case "audio_unit":
		return KindAudioUnit
	case "control":
		return KindControl
	default:
		return KindGeneral
	}
}

func parseArgType(s string) ArgType {
	switch s {
	case "bool":
		return ArgBool
	case "int":
		return ArgInt
	case "float":
		return ArgFloat
	case "tstamp":
		return ArgTstamp
	case "string":
		return ArgString
	case "pattern_inst_ref":
		return ArgPatternInstRef
	case "realtime":
		return ArgRealtime
	default:
		return ArgNone
	}
}

// Lookup returns the descriptor for an event name and whether it is
// registered. An unregistered name is not an error at this layer — the
// dispatcher treats it the same as a failed argument validation (silent
// drop, spec.md §4.2/§7).
func Lookup(name string) (Descriptor, bool) {
	d, ok := registry[name]
	return d, ok
}

// Arg is a typed trigger argument value. Exactly one field is meaningful,
// selected by the Type tag.
type Arg struct {
	Type   ArgType
	Bool   bool
	Int    int64
	Float  float64
	String string
	// TstampBeats/TstampRem encode a tstamp.Tstamp without importing the
	// tstamp package here, keeping events free of a dependency edge that
	// would otherwise make the registry package depend on player-layer
	// timing internals.
	TstampBeats int64
	TstampRem   int32
	// PatternID/InstanceID back ArgPatternInstRef, mirroring
	// score.PatternInstanceRef without importing the score package here.
	PatternID  int
	InstanceID int
}

// Validate reports whether arg's type matches the event's declared
// argument type. A mismatch is not fatal: the dispatcher drops the event
// silently per spec.md §7 "Argument errors ... silent drop".
func Validate(name string, arg Arg) bool {
	d, ok := Lookup(name)
	if !ok {
		return false
	}
	if d.ArgType == ArgNone {
		return arg.Type == ArgNone
	}
	return d.ArgType == arg.Type
}
