package empfile

import (
	"fmt"
)

// Field names an animatable scalar of the decompiled representation.
type Field uint8

const (
	FieldPositionX Field = iota
	FieldPositionY
	FieldPositionZ
	FieldRotationX
	FieldRotationY
	FieldRotationZ

	FieldEmitterPosition
	FieldEmitterVelocity
	FieldEmitterAngle
	FieldEmitterSize
	FieldEmitterSize2

	FieldActiveRotation
	FieldScaleBase
	FieldScaleX
	FieldScaleY
	FieldColor1R
	FieldColor1G
	FieldColor1B
	FieldColor1Alpha
	FieldColor2R
	FieldColor2G
	FieldColor2B
	FieldColor2Alpha

	FieldAxisX
	FieldAxisY
	FieldAxisZ
	FieldFactor
	FieldFactor2

	fieldCount

	// FieldRaw refers to a compiled parameter that no field claims.
	FieldRaw Field = 0xFF
)

var fieldStrings = [fieldCount]string{
	FieldPositionX:       "Position.X",
	FieldPositionY:       "Position.Y",
	FieldPositionZ:       "Position.Z",
	FieldRotationX:       "Rotation.X",
	FieldRotationY:       "Rotation.Y",
	FieldRotationZ:       "Rotation.Z",
	FieldEmitterPosition: "Emitter.Position",
	FieldEmitterVelocity: "Emitter.Velocity",
	FieldEmitterAngle:    "Emitter.Angle",
	FieldEmitterSize:     "Emitter.Size",
	FieldEmitterSize2:    "Emitter.Size2",
	FieldActiveRotation:  "ActiveRotation",
	FieldScaleBase:       "ScaleBase",
	FieldScaleX:          "ScaleX",
	FieldScaleY:          "ScaleY",
	FieldColor1R:         "Color1.R",
	FieldColor1G:         "Color1.G",
	FieldColor1B:         "Color1.B",
	FieldColor1Alpha:     "Color1.A",
	FieldColor2R:         "Color2.R",
	FieldColor2G:         "Color2.G",
	FieldColor2B:         "Color2.B",
	FieldColor2Alpha:     "Color2.A",
	FieldAxisX:           "Axis.X",
	FieldAxisY:           "Axis.Y",
	FieldAxisZ:           "Axis.Z",
	FieldFactor:          "Factor",
	FieldFactor2:         "Factor2",
}

func (f Field) String() string {
	if f < fieldCount {
		return fieldStrings[f]
	}
	if f == FieldRaw {
		return "raw"
	}
	return fmt.Sprintf("Field(%d)", uint8(f))
}

// Parameter identifiers of node tracks.
const (
	ParamPosition       = 0
	ParamRotation       = 1
	ParamEmitter        = 2
	ParamActiveRotation = 3
	ParamScale          = 4
	ParamColor1         = 5
	ParamColor2         = 6
	ParamAlpha          = 7
)

// Parameter identifiers of modifier tracks.
const (
	ParamAxis   = 0
	ParamFactor = 1
)

// condition further restricts when a schema entry applies.
type condition uint8

const (
	always         condition = iota
	scaleXY                  // FlagUseScaleXY is set.
	noScaleXY                // FlagUseScaleXY is unset.
	sphereOwner              // The owning emitter is a sphere.
	notSphereOwner           // The owning emitter is not a sphere.
)

// anyKind matches every node kind.
const anyKind NodeKind = 0xFF

func shapeMask(shapes ...EmitterShape) uint8 {
	var m uint8
	for _, s := range shapes {
		m |= 1 << s
	}
	return m
}

// schemaEntry maps a Field to a compiled parameter under a context.
type schemaEntry struct {
	Field Field
	Key   ParameterKey
	Kind  NodeKind
	// Shapes restricts emitter fields to a set of shapes.
	Shapes uint8
	Cond   condition
}

var (
	coneFields   = shapeMask(ShapeCone, ShapeCircle, ShapeSquare)
	allShapes    = shapeMask(ShapeCone, ShapeSphere, ShapeCircle, ShapeSquare)
	sizeShapes   = shapeMask(ShapeSphere, ShapeCircle, ShapeSquare)
	squareShapes = shapeMask(ShapeSquare)
)

// nodeSchema is the parameter schema of node tracks. It is never modified.
var nodeSchema = [...]schemaEntry{
	{Field: FieldPositionX, Key: ParameterKey{ParamPosition, 0}, Kind: anyKind},
	{Field: FieldPositionY, Key: ParameterKey{ParamPosition, 1}, Kind: anyKind},
	{Field: FieldPositionZ, Key: ParameterKey{ParamPosition, 2}, Kind: anyKind},
	{Field: FieldRotationX, Key: ParameterKey{ParamRotation, 0}, Kind: anyKind},
	{Field: FieldRotationY, Key: ParameterKey{ParamRotation, 1}, Kind: anyKind},
	{Field: FieldRotationZ, Key: ParameterKey{ParamRotation, 2}, Kind: anyKind},

	{Field: FieldEmitterPosition, Key: ParameterKey{ParamEmitter, 0}, Kind: KindEmitter, Shapes: coneFields},
	{Field: FieldEmitterVelocity, Key: ParameterKey{ParamEmitter, 1}, Kind: KindEmitter, Shapes: allShapes},
	{Field: FieldEmitterAngle, Key: ParameterKey{ParamEmitter, 2}, Kind: KindEmitter, Shapes: coneFields},
	{Field: FieldEmitterSize, Key: ParameterKey{ParamEmitter, 3}, Kind: KindEmitter, Shapes: sizeShapes},
	{Field: FieldEmitterSize2, Key: ParameterKey{ParamEmitter, 4}, Kind: KindEmitter, Shapes: squareShapes},

	{Field: FieldActiveRotation, Key: ParameterKey{ParamActiveRotation, 0}, Kind: KindEmission},
	{Field: FieldScaleBase, Key: ParameterKey{ParamScale, 0}, Kind: KindEmission, Cond: noScaleXY},
	{Field: FieldScaleBase, Key: ParameterKey{ParamScale, 2}, Kind: KindEmission, Cond: scaleXY},
	{Field: FieldScaleX, Key: ParameterKey{ParamScale, 0}, Kind: KindEmission, Cond: scaleXY},
	{Field: FieldScaleY, Key: ParameterKey{ParamScale, 1}, Kind: KindEmission, Cond: scaleXY},
	{Field: FieldColor1R, Key: ParameterKey{ParamColor1, 0}, Kind: KindEmission},
	{Field: FieldColor1G, Key: ParameterKey{ParamColor1, 1}, Kind: KindEmission},
	{Field: FieldColor1B, Key: ParameterKey{ParamColor1, 2}, Kind: KindEmission},
	{Field: FieldColor2R, Key: ParameterKey{ParamColor2, 0}, Kind: KindEmission},
	{Field: FieldColor2G, Key: ParameterKey{ParamColor2, 1}, Kind: KindEmission},
	{Field: FieldColor2B, Key: ParameterKey{ParamColor2, 2}, Kind: KindEmission},
	{Field: FieldColor1Alpha, Key: ParameterKey{ParamAlpha, 3}, Kind: KindEmission, Cond: notSphereOwner},
	{Field: FieldColor1Alpha, Key: ParameterKey{ParamAlpha, 2}, Kind: KindEmission, Cond: sphereOwner},
	{Field: FieldColor2Alpha, Key: ParameterKey{ParamAlpha, 0}, Kind: KindEmission},
}

// modifierKeys maps modifier fields to their compiled parameter.
var modifierKeys = map[Field]ParameterKey{
	FieldAxisX:   {ParamAxis, 0},
	FieldAxisY:   {ParamAxis, 1},
	FieldAxisZ:   {ParamAxis, 2},
	FieldFactor:  {ParamFactor, 0},
	FieldFactor2: {ParamFactor, 1},
}

var (
	axisFields       = []Field{FieldAxisX, FieldAxisY, FieldAxisZ}
	axisFactorFields = []Field{FieldAxisX, FieldAxisY, FieldAxisZ, FieldFactor}
	fullFields       = []Field{FieldAxisX, FieldAxisY, FieldAxisZ, FieldFactor, FieldFactor2}
	factorFields     = []Field{FieldFactor}
)

// modifierSchema lists the fields used by each modifier type.
var modifierSchema = map[ModifierType][]Field{
	ModifierTranslate:           axisFields,
	ModifierAcceleration:        axisFactorFields,
	ModifierAngularAcceleration: axisFactorFields,
	ModifierVortex:              fullFields,
	ModifierJitter:              axisFactorFields,
	ModifierDrag:                factorFields,
	ModifierAttract:             fullFields,
	ModifierCamera:              factorFields,
	ModifierTraceTranslate:      axisFields,
	ModifierTraceFade:           factorFields,
}

// schemaContext holds the node state that selects schema entries.
type schemaContext struct {
	Kind    NodeKind
	Shape   EmitterShape
	ScaleXY bool
	Owner   EmitterShape
}

func (e schemaEntry) applies(ctx schemaContext) bool {
	if e.Kind != anyKind && e.Kind != ctx.Kind {
		return false
	}
	if e.Shapes != 0 && (ctx.Shape >= 8 || e.Shapes&(1<<ctx.Shape) == 0) {
		return false
	}
	switch e.Cond {
	case scaleXY:
		return ctx.ScaleXY
	case noScaleXY:
		return !ctx.ScaleXY
	case sphereOwner:
		return ctx.Owner == ShapeSphere
	case notSphereOwner:
		return ctx.Owner != ShapeSphere
	}
	return true
}

// binding is a schema entry resolved for a particular context.
type binding struct {
	Field Field
	Key   ParameterKey
}

func nodeBindings(ctx schemaContext) []binding {
	bindings := make([]binding, 0, len(nodeSchema))
	for _, e := range nodeSchema {
		if e.applies(ctx) {
			bindings = append(bindings, binding{Field: e.Field, Key: e.Key})
		}
	}
	return bindings
}

func modifierBindings(typ ModifierType) []binding {
	fields := modifierSchema[typ]
	bindings := make([]binding, len(fields))
	for i, f := range fields {
		bindings[i] = binding{Field: f, Key: modifierKeys[f]}
	}
	return bindings
}

// Lookup returns the compiled parameter that a field of the node maps to,
// given the shape of the node's owning emitter. Returns false if the field
// is not used by the node.
func (n *Node) Lookup(field Field, owner EmitterShape) (ParameterKey, bool) {
	for _, b := range nodeBindings(n.schemaContext(owner)) {
		if b.Field == field {
			return b.Key, true
		}
	}
	return ParameterKey{}, false
}

func (n *Node) schemaContext(owner EmitterShape) schemaContext {
	ctx := schemaContext{
		Kind:    n.Kind(),
		Shape:   NoShape,
		ScaleXY: n.Flags.Has(FlagUseScaleXY),
		Owner:   owner,
	}
	if e, ok := n.Payload.(Emitter); ok {
		ctx.Shape = e.Shape()
	}
	return ctx
}

////////////////////////////////////////////////////////////////

// SchemaConsistencyError indicates that compiling would produce two
// parameters with the same identifying pair. It signals an inconsistent
// in-memory graph rather than malformed data.
type SchemaConsistencyError struct {
	Key ParameterKey
	// Field is the field that produced the duplicate, or FieldRaw.
	Field Field
	// Previous is the field that first produced the pair.
	Previous Field
}

func (err SchemaConsistencyError) Error() string {
	return fmt.Sprintf("duplicate animated parameter (%d, %d) from %s, already produced by %s",
		err.Key.Parameter, err.Key.Component, err.Field, err.Previous)
}

// compiler accumulates compiled parameters, rejecting duplicates.
type compiler struct {
	out  []AnimatedParameter
	seen map[ParameterKey]Field
}

func (c *compiler) add(p AnimatedParameter, field Field) error {
	if c.seen == nil {
		c.seen = map[ParameterKey]Field{}
	}
	key := p.Key()
	if prev, ok := c.seen[key]; ok {
		return SchemaConsistencyError{Key: key, Field: field, Previous: prev}
	}
	c.seen[key] = field
	c.out = append(c.out, p)
	return nil
}

// compileTracks compiles the tracks of bindings together with raw. Keys of
// layout are emitted first, in order: a bound track is compiled even without
// keyframes, unless raw holds the key and the track is not animated. The
// remaining animated tracks follow in schema order, then the remaining raw
// parameters.
func compileTracks(bindings []binding, track func(Field) *Track, raw []AnimatedParameter, layout []ParameterKey) ([]AnimatedParameter, error) {
	var c compiler
	done := make([]bool, len(bindings))
	used := make([]bool, len(raw))
	for _, key := range layout {
		if _, ok := c.seen[key]; ok {
			continue
		}
		rawIndex := -1
		for i, p := range raw {
			if !used[i] && p.Key() == key {
				rawIndex = i
				break
			}
		}
		bound := false
		for i, b := range bindings {
			if done[i] || b.Key != key {
				continue
			}
			t := track(b.Field)
			if t == nil || (rawIndex >= 0 && !t.Animated()) {
				continue
			}
			done[i] = true
			bound = true
			if err := c.add(t.compile(b.Key), b.Field); err != nil {
				return nil, err
			}
			break
		}
		if !bound && rawIndex >= 0 {
			used[rawIndex] = true
			if err := c.add(raw[rawIndex].Copy(), FieldRaw); err != nil {
				return nil, err
			}
		}
	}
	for i, b := range bindings {
		if done[i] {
			continue
		}
		t := track(b.Field)
		if t == nil || !t.Animated() {
			continue
		}
		if err := c.add(t.compile(b.Key), b.Field); err != nil {
			return nil, err
		}
	}
	for i, p := range raw {
		if used[i] {
			continue
		}
		if err := c.add(p.Copy(), FieldRaw); err != nil {
			return nil, err
		}
	}
	return c.out, nil
}

// decompileTracks distributes params into the tracks of bindings, returning
// the parameters that no binding claims, and the keys of params in order. If
// duration is non-zero, keyframes are clipped to it.
func decompileTracks(bindings []binding, track func(Field) *Track, params []AnimatedParameter, duration uint16) (rest []AnimatedParameter, layout []ParameterKey) {
	byKey := make(map[ParameterKey]int, len(params))
	for i, p := range params {
		byKey[p.Key()] = i
		layout = append(layout, p.Key())
	}
	claimed := make([]bool, len(params))
	for _, b := range bindings {
		t := track(b.Field)
		if t == nil {
			continue
		}
		i, ok := byKey[b.Key]
		if !ok {
			t.clear()
			continue
		}
		claimed[i] = true
		t.load(&params[i])
		if duration != 0 {
			t.Keyframes = ClipKeyframes(t.Keyframes, duration, t.Loop, t.Interpolate)
		}
	}
	for i, p := range params {
		if !claimed[i] {
			rest = append(rest, p)
		}
	}
	return rest, layout
}

func clearTracks(bindings []binding, track func(Field) *Track) {
	for _, b := range bindings {
		if t := track(b.Field); t != nil {
			t.Keyframes = nil
		}
	}
}

// CompileParameters returns the compiled parameters of the node: the
// animated tracks in schema order, followed by AnimatedParameters. owner is
// the shape of the nearest emitter ancestor, or NoShape.
//
// A node that was decompiled keeps the order of its parameters at that time,
// including parameters without keyframes, so that compiling reproduces the
// decompiled list.
func (n *Node) CompileParameters(owner EmitterShape) ([]AnimatedParameter, error) {
	return compileTracks(nodeBindings(n.schemaContext(owner)), n.Track, n.AnimatedParameters, n.layout)
}

// Decompile moves compiled parameters of the node and its modifiers into
// their typed tracks. Parameters that no field claims remain in
// AnimatedParameters. If full is true, keyframes are clipped to the node's
// Lifetime with ClipKeyframes, which is lossy.
//
// Decompile is idempotent: tracks that are already animated are recompiled
// before being redistributed. The node is unchanged if an error is returned.
func (n *Node) Decompile(owner EmitterShape, full bool) error {
	bindings := nodeBindings(n.schemaContext(owner))
	params, err := compileTracks(bindings, n.Track, n.AnimatedParameters, n.layout)
	if err != nil {
		return err
	}
	modParams, err := n.compileModifiers()
	if err != nil {
		return err
	}
	var duration uint16
	if full {
		duration = n.Lifetime
	}
	n.AnimatedParameters, n.layout = decompileTracks(bindings, n.Track, params, duration)
	for i, m := range n.Modifiers {
		m.AnimatedParameters, m.layout = decompileTracks(modifierBindings(m.Type), m.Track, modParams[i], duration)
	}
	return nil
}

// Compile moves the animated tracks of the node and its modifiers into
// AnimatedParameters, leaving the tracks without keyframes. The node is
// unchanged if an error is returned.
func (n *Node) Compile(owner EmitterShape) error {
	bindings := nodeBindings(n.schemaContext(owner))
	params, err := compileTracks(bindings, n.Track, n.AnimatedParameters, n.layout)
	if err != nil {
		return err
	}
	modParams, err := n.compileModifiers()
	if err != nil {
		return err
	}
	n.AnimatedParameters = params
	n.layout = nil
	clearTracks(bindings, n.Track)
	for i, m := range n.Modifiers {
		m.AnimatedParameters = modParams[i]
		m.layout = nil
		clearTracks(modifierBindings(m.Type), m.Track)
	}
	return nil
}

func (n *Node) compileModifiers() ([][]AnimatedParameter, error) {
	lists := make([][]AnimatedParameter, len(n.Modifiers))
	for i, m := range n.Modifiers {
		params, err := m.CompileParameters()
		if err != nil {
			return nil, fmt.Errorf("modifier %d: %w", i, err)
		}
		lists[i] = params
	}
	return lists, nil
}

// Track returns the modifier track of a field, or nil if the field does not
// belong to modifiers.
func (m *Modifier) Track(field Field) *Track {
	switch field {
	case FieldAxisX, FieldAxisY, FieldAxisZ:
		return m.Axis.axis(int(field - FieldAxisX))
	case FieldFactor:
		return &m.Factor
	case FieldFactor2:
		return &m.Factor2
	}
	return nil
}

// CompileParameters returns the compiled parameters of the modifier.
func (m *Modifier) CompileParameters() ([]AnimatedParameter, error) {
	return compileTracks(modifierBindings(m.Type), m.Track, m.AnimatedParameters, m.layout)
}
