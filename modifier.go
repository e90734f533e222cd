package empfile

import (
	"strconv"
)

// ModifierType identifies the behavior of a Modifier.
type ModifierType uint8

// Modifier types of EMP files.
const (
	ModifierTranslate ModifierType = iota
	ModifierAcceleration
	ModifierAngularAcceleration
	ModifierVortex
	ModifierJitter
	ModifierDrag
	ModifierAttract
	ModifierCamera
)

// Modifier types used when modifier groups are hosted by trace effects.
// These do not overlap with the EMP types.
const (
	ModifierTraceTranslate ModifierType = 16 + iota
	ModifierTraceFade
)

var modifierStrings = map[ModifierType]string{
	ModifierTranslate:           "Translate",
	ModifierAcceleration:        "Acceleration",
	ModifierAngularAcceleration: "AngularAcceleration",
	ModifierVortex:              "Vortex",
	ModifierJitter:              "Jitter",
	ModifierDrag:                "Drag",
	ModifierAttract:             "Attract",
	ModifierCamera:              "Camera",
	ModifierTraceTranslate:      "TraceTranslate",
	ModifierTraceFade:           "TraceFade",
}

func (t ModifierType) String() string {
	if s, ok := modifierStrings[t]; ok {
		return s
	}
	return "ModifierType(" + strconv.Itoa(int(t)) + ")"
}

// Known returns whether the type has a schema. Modifiers of unknown types
// keep all of their parameters in raw form.
func (t ModifierType) Known() bool {
	_, ok := modifierStrings[t]
	return ok
}

// Modifier is a post-process applied to the particles of a node.
type Modifier struct {
	Type  ModifierType
	Flags uint8

	// Axis is a direction or position, depending on Type.
	Axis Vector3Track
	// Factor is the primary strength of the modifier.
	Factor Track
	// Factor2 is a secondary strength, used by Vortex and Attract.
	Factor2 Track

	// AnimatedParameters holds compiled parameters. After decompiling, it
	// holds only parameters not claimed by the schema of Type.
	AnimatedParameters []AnimatedParameter
	// layout is the order of the compiled parameters when last decompiled.
	layout []ParameterKey
}

// NewModifier returns an empty modifier of the given type.
func NewModifier(typ ModifierType) *Modifier {
	return &Modifier{Type: typ}
}

// Copy returns a deep copy of the modifier.
func (m *Modifier) Copy() *Modifier {
	c := *m
	c.Axis = m.Axis.copy()
	c.Factor = m.Factor.copy()
	c.Factor2 = m.Factor2.copy()
	c.AnimatedParameters = copyParameters(m.AnimatedParameters)
	return &c
}

func copyParameters(params []AnimatedParameter) []AnimatedParameter {
	if params == nil {
		return nil
	}
	c := make([]AnimatedParameter, len(params))
	for i, p := range params {
		c[i] = p.Copy()
	}
	return c
}
