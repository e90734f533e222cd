// The declare package is used to generate empfile structures in a declarative
// style.
//
// Most items have a Declare method, which returns a new empfile structure
// corresponding to the declared item.
//
// The easiest way to use this package is to import it directly into the
// current package:
//
//	import . "github.com/emptools/empfile/declare"
//
// This allows the package's identifiers to be used directly without a
// qualifier.
package declare

import (
	"github.com/emptools/empfile"
)

// primary is implemented by declarations that can be directly within a Root
// declaration.
type primary interface {
	primary()
}

// Root declares an empfile.Document. It is a list that contains Version,
// Node, and Sampler declarations.
type Root []primary

// version represents the declaration of a document version.
type version empfile.Version

func (version) primary() {}

// Version declares the Version of the document. If not declared,
// empfile.VersionXenoverse2 is used.
func Version(v empfile.Version) version {
	return version(v)
}

// slotRef is a texture slot waiting for its sampler to be resolved.
type slotRef struct {
	texture *empfile.Texture
	slot    int
	ref     string
}

// build recursively resolves node declarations.
func build(dnode node, owner empfile.EmitterShape, slots *[]slotRef) *empfile.Node {
	n := empfile.NewNode(dnode.name, nil)
	if dnode.payload != nil {
		n.Payload = dnode.payload.payload()
	}

	for _, prop := range dnode.properties {
		prop.setNode(n)
	}
	for _, dtrack := range dnode.tracks {
		if t := n.Track(dtrack.field); t != nil {
			dtrack.apply(t)
		}
	}
	for _, dparam := range dnode.parameters {
		n.AnimatedParameters = append(n.AnimatedParameters, dparam.Declare())
	}
	for _, dmod := range dnode.modifiers {
		n.Modifiers = append(n.Modifiers, dmod.Declare())
	}
	if e := n.Emission(); e != nil && slots != nil {
		for _, s := range dnode.slots {
			if s.slot >= 0 && s.slot < empfile.MaxSamplers {
				*slots = append(*slots, slotRef{texture: &e.Texture, slot: s.slot, ref: s.ref})
			}
		}
	}

	childOwner := owner
	if e := n.Emitter(); e != nil {
		childOwner = e.Shape()
	}
	for _, dchild := range dnode.children {
		n.AddChild(build(dchild, childOwner, slots))
	}

	if len(n.AnimatedParameters) > 0 {
		// Parameters claimed by a field are moved into tracks.
		n.Decompile(owner, false)
	}
	return n
}

// Declare evaluates the Root declaration, generating nodes and samplers,
// setting up the node hierarchy, and resolving texture slots.
//
// Elements are evaluated in order; if two Version declarations are present,
// the latter takes precedence. A slot that refers to an undeclared sampler
// is left empty.
func (droot Root) Declare() *empfile.Document {
	doc := empfile.NewDocument(empfile.VersionXenoverse2)
	refs := map[string]*empfile.TextureSampler{}
	var slots []slotRef

	for _, p := range droot {
		switch p := p.(type) {
		case version:
			doc.Version = empfile.Version(p)
		case node:
			doc.Nodes = append(doc.Nodes, build(p, empfile.NoShape, &slots))
		case sampler:
			smp := p.Declare()
			if p.ref != "" {
				refs[p.ref] = smp
			}
			doc.Samplers = append(doc.Samplers, smp)
		}
	}

	for _, s := range slots {
		s.texture.Samplers[s.slot] = refs[s.ref]
	}
	return doc
}

// element is implemented by declarations that can be within a node
// declaration.
type element interface {
	element()
}

// node represents the declaration of an empfile.Node.
type node struct {
	name       string
	payload    payload
	properties []property
	tracks     []track
	parameters []parameter
	modifiers  []modifier
	slots      []slot
	children   []node
}

func (node) primary() {}
func (node) element() {}

// Declare evaluates the Node declaration, generating the node, its
// descendants, and their values. Texture slots are not resolved, because
// samplers belong to a Root.
func (dnode node) Declare() *empfile.Node {
	return build(dnode, empfile.NoShape, nil)
}

// Node declares an empfile.Node. It defines a node with a name, and a series
// of "elements". An element can be a payload declaration (Emitter or
// Emission), a Property, a Track, a Parameter, a Modifier, or a Slot. An
// element can also be another Node declaration, which becomes a child of the
// node.
func Node(name string, elements ...element) node {
	n := node{name: name}
	for _, e := range elements {
		switch e := e.(type) {
		case payload:
			n.payload = e
		case property:
			n.properties = append(n.properties, e)
		case track:
			n.tracks = append(n.tracks, e)
		case parameter:
			n.parameters = append(n.parameters, e)
		case modifier:
			n.modifiers = append(n.modifiers, e)
		case slot:
			n.slots = append(n.slots, e)
		case node:
			n.children = append(n.children, e)
		}
	}
	return n
}

// payload is implemented by declarations of a node payload.
type payload interface {
	element
	payload() empfile.Payload
}

type emitter empfile.EmitterShape

func (emitter) element() {}
func (e emitter) payload() empfile.Payload {
	if em := empfile.NewEmitter(empfile.EmitterShape(e)); em != nil {
		return em
	}
	return nil
}

// Emitter declares the node to be an emitter of the given shape. An unknown
// shape declares a Null node.
func Emitter(shape empfile.EmitterShape) element {
	return emitter(shape)
}

type emission empfile.EmissionKind

func (emission) element() {}
func (e emission) payload() empfile.Payload {
	if em := empfile.NewEmission(empfile.EmissionKind(e)); em != nil {
		return em
	}
	return nil
}

// Emission declares the node to be an emission of the given kind, with
// default texture values. An unknown kind declares a Null node.
func Emission(kind empfile.EmissionKind) element {
	return emission(kind)
}

// slot represents the declaration of a texture slot.
type slot struct {
	slot int
	ref  string
}

func (slot) element() {}

// Slot declares that a texture slot of an emission node refers to the
// sampler declared with the given reference.
func Slot(i int, ref string) slot {
	return slot{slot: i, ref: ref}
}

////////////////////////////////////////////////////////////////

// trackElement is implemented by declarations that can be within a Track or
// Parameter declaration.
type trackElement interface {
	trackElement()
}

type value [2]float32

func (value) trackElement() {}

// Value declares the static value of a track, followed optionally by its
// variance. Within a Parameter, the value is the default.
func Value(v ...interface{}) trackElement {
	var val value
	for i := 0; i < len(v) && i < len(val); i++ {
		val[i] = normFloat32(v[i])
	}
	return val
}

type key empfile.Keyframe

func (key) trackElement() {}

// Key declares a keyframe at a frame.
func Key(time, v interface{}) trackElement {
	return key{Time: normUint16(time), Value: normFloat32(v)}
}

type trackFlag uint8

func (trackFlag) trackElement() {}

const (
	// Interpolate declares that values between keyframes are interpolated.
	Interpolate trackFlag = 1 << iota
	// Loop declares that keyframes restart after the last.
	Loop
)

// track represents the declaration of a decompiled empfile.Track.
type track struct {
	field    empfile.Field
	elements []trackElement
}

func (track) element()         {}
func (track) modifierElement() {}

func (dtrack track) apply(t *empfile.Track) {
	for _, e := range dtrack.elements {
		switch e := e.(type) {
		case value:
			t.Value, t.Variance = e[0], e[1]
		case key:
			t.SetKeyframe(e.Time, e.Value)
		case trackFlag:
			t.Interpolate = t.Interpolate || e&Interpolate != 0
			t.Loop = t.Loop || e&Loop != 0
		}
	}
}

// Track declares the value and keyframes of a field of a node or modifier.
// A field that does not belong to the node is ignored.
func Track(field empfile.Field, elements ...trackElement) track {
	return track{field: field, elements: elements}
}

// parameter represents the declaration of an empfile.AnimatedParameter.
type parameter struct {
	param     uint8
	component uint8
	elements  []trackElement
}

func (parameter) element()         {}
func (parameter) modifierElement() {}

// Declare evaluates the Parameter declaration.
func (dparam parameter) Declare() empfile.AnimatedParameter {
	var t empfile.Track
	track{elements: dparam.elements}.apply(&t)
	return empfile.AnimatedParameter{
		Parameter:   dparam.param,
		Component:   dparam.component,
		Interpolate: t.Interpolate,
		Loop:        t.Loop,
		Default:     t.Value,
		Keyframes:   t.Keyframes,
	}
}

// Parameter declares an animated parameter in compiled form. When the node
// is declared, parameters that a field of the node claims are moved into the
// corresponding track.
func Parameter(param, component uint8, elements ...trackElement) parameter {
	return parameter{param: param, component: component, elements: elements}
}

// modifierElement is implemented by declarations that can be within a
// Modifier declaration.
type modifierElement interface {
	modifierElement()
}

type modifierFlags uint8

func (modifierFlags) modifierElement() {}

// ModifierFlags declares the flags of a modifier.
func ModifierFlags(flags uint8) modifierElement {
	return modifierFlags(flags)
}

// modifier represents the declaration of an empfile.Modifier.
type modifier struct {
	typ      empfile.ModifierType
	elements []modifierElement
}

func (modifier) element() {}

// Declare evaluates the Modifier declaration.
func (dmod modifier) Declare() *empfile.Modifier {
	m := empfile.NewModifier(dmod.typ)
	for _, e := range dmod.elements {
		switch e := e.(type) {
		case modifierFlags:
			m.Flags = uint8(e)
		case track:
			if t := m.Track(e.field); t != nil {
				e.apply(t)
			}
		case parameter:
			m.AnimatedParameters = append(m.AnimatedParameters, e.Declare())
		}
	}
	return m
}

// Modifier declares an empfile.Modifier of the given type, with Track,
// Parameter, and ModifierFlags elements.
func Modifier(typ empfile.ModifierType, elements ...modifierElement) modifier {
	return modifier{typ: typ, elements: elements}
}
