// The empfile package handles the decoding, encoding, and manipulation of EMP
// particle-effect definitions.
//
// A particle effect begins with a Document. A Document contains a list of
// root Nodes, which in turn contain child Nodes, forming a tree. Each Node is
// either a Null node that only groups its children, an Emitter that spawns
// particles from a shape, or an Emission that renders them. The kind of a
// node is determined by its Payload.
//
// Animated values exist in two forms. The compiled form is a flat list of
// AnimatedParameters per node, each identified by a (parameter, component)
// pair; this is how values are stored in a file. The decompiled form places
// keyframes into the typed Track fields of the node, such as Position.X or
// Texture.Color1.A. Document.Decompile and Document.Compile convert between
// the two.
//
// The "emp" sub-package decodes Documents from and encodes them to the
// binary format. Documents can also be built with the "declare" sub-package.
package empfile

import (
	"bytes"
	"fmt"
	"strings"
)

// NameSize is the maximum length in bytes of a Node name.
const NameSize = 32

// Document is the root of a particle effect.
type Document struct {
	// Version is the format version tag. Unknown versions are retained.
	Version Version

	// Nodes contains the root nodes of the tree, in order.
	Nodes []*Node

	// Samplers is the texture sampler table. Texture slots refer to its
	// entries, and order is significant.
	Samplers []*TextureSampler
}

// NewDocument returns an empty Document of the given version.
func NewDocument(version Version) *Document {
	return &Document{Version: version}
}

// Node is one element of the particle tree.
type Node struct {
	// Name is at most NameSize bytes.
	Name string

	Flags  NodeFlags
	Flags2 NodeFlags2

	Lifetime               uint16
	LifetimeVariance       uint16
	StartTime              uint16
	StartTimeVariance      uint16
	MaxInstances           uint16
	Burst                  uint16
	BurstFrequency         uint16
	BurstFrequencyVariance uint16

	Position Vector3Track
	Rotation Vector3Track

	// Payload is nil for a Null node, an Emitter for an emitter node, or an
	// *Emission.
	Payload Payload

	// Children are nested under the node.
	Children []*Node

	// AnimatedParameters holds compiled parameters. After decompiling, it
	// holds only parameters not claimed by the schema of the node.
	AnimatedParameters []AnimatedParameter
	// layout is the order of the compiled parameters when last decompiled.
	layout []ParameterKey

	Modifiers []*Modifier

	// Reserved holds header bytes with no known meaning.
	Reserved [40]byte
}

// NewNode returns a node with the given name and payload.
func NewNode(name string, payload Payload) *Node {
	return &Node{Name: name, Payload: payload}
}

// Kind returns the kind of the node, as determined by Payload.
func (n *Node) Kind() NodeKind {
	if n.Payload == nil {
		return KindNull
	}
	return n.Payload.Kind()
}

// Emitter returns the emitter payload of the node, or nil.
func (n *Node) Emitter() Emitter {
	e, _ := n.Payload.(Emitter)
	return e
}

// Emission returns the emission payload of the node, or nil.
func (n *Node) Emission() *Emission {
	e, _ := n.Payload.(*Emission)
	return e
}

// Track returns the node track of a field, or nil if the node's payload has
// no such field.
func (n *Node) Track(field Field) *Track {
	switch field {
	case FieldPositionX, FieldPositionY, FieldPositionZ:
		return n.Position.axis(int(field - FieldPositionX))
	case FieldRotationX, FieldRotationY, FieldRotationZ:
		return n.Rotation.axis(int(field - FieldRotationX))
	}
	switch p := n.Payload.(type) {
	case *ConeEmitter:
		switch field {
		case FieldEmitterPosition:
			return &p.Position
		case FieldEmitterVelocity:
			return &p.Velocity
		case FieldEmitterAngle:
			return &p.Angle
		}
	case *SphereEmitter:
		switch field {
		case FieldEmitterSize:
			return &p.Size
		case FieldEmitterVelocity:
			return &p.Velocity
		}
	case *CircleEmitter:
		switch field {
		case FieldEmitterSize:
			return &p.Size
		case FieldEmitterPosition:
			return &p.Position
		case FieldEmitterVelocity:
			return &p.Velocity
		case FieldEmitterAngle:
			return &p.Angle
		}
	case *SquareEmitter:
		switch field {
		case FieldEmitterPosition:
			return &p.Position
		case FieldEmitterVelocity:
			return &p.Velocity
		case FieldEmitterAngle:
			return &p.Angle
		case FieldEmitterSize:
			return &p.Size
		case FieldEmitterSize2:
			return &p.Size2
		}
	case *Emission:
		t := &p.Texture
		switch field {
		case FieldActiveRotation:
			return &p.ActiveRotation
		case FieldScaleBase:
			return &t.ScaleBase
		case FieldScaleX:
			return &t.ScaleX
		case FieldScaleY:
			return &t.ScaleY
		case FieldColor1R:
			return &t.Color1.R
		case FieldColor1G:
			return &t.Color1.G
		case FieldColor1B:
			return &t.Color1.B
		case FieldColor1Alpha:
			return &t.Color1.A
		case FieldColor2R:
			return &t.Color2.R
		case FieldColor2G:
			return &t.Color2.G
		case FieldColor2B:
			return &t.Color2.B
		case FieldColor2Alpha:
			return &t.Color2.A
		}
	}
	return nil
}

// ValidName returns an error if the name cannot be stored in a node.
func ValidName(name string) error {
	if len(name) > NameSize {
		return fmt.Errorf("name %q exceeds %d bytes", name, NameSize)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("name %q contains a null byte", name)
	}
	return nil
}

// AddChild appends child to the children of the node.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// RemoveChild removes child from the children of the node, returning
// whether it was found.
func (n *Node) RemoveChild(child *Node) bool {
	for i, ch := range n.Children {
		if ch == child {
			n.Children[i] = nil
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

// FindFirstChild returns the first child whose Name matches the given name.
// Returns nil if no child was found. If recursive is true, then
// FindFirstChild will be called on descendants as well.
func (n *Node) FindFirstChild(name string, recursive bool) *Node {
	for _, child := range n.Children {
		if child.Name == name {
			return child
		}
	}

	if recursive {
		for _, child := range n.Children {
			if desc := child.FindFirstChild(name, true); desc != nil {
				return desc
			}
		}
	}

	return nil
}

// Clone returns a deep copy of the node and its descendants. Texture slots
// of the copy refer to the same samplers as the original.
func (n *Node) Clone() *Node {
	clone := *n
	clone.Position = n.Position.copy()
	clone.Rotation = n.Rotation.copy()
	if n.Payload != nil {
		clone.Payload = n.Payload.copyPayload()
	}
	clone.AnimatedParameters = copyParameters(n.AnimatedParameters)

	clone.Modifiers = nil
	for _, m := range n.Modifiers {
		clone.Modifiers = append(clone.Modifiers, m.Copy())
	}

	clone.Children = nil
	for _, child := range n.Children {
		clone.Children = append(clone.Children, child.Clone())
	}
	return &clone
}

// String implements the fmt.Stringer interface by returning the Name of the
// node, or the kind if Name is empty.
func (n *Node) String() string {
	if n.Name == "" {
		return n.Kind().String()
	}
	return n.Name
}

////////////////////////////////////////////////////////////////

// Walk calls fn for each node of the document in depth-first pre-order,
// along with its parent (nil for root nodes) and the shape of the nearest
// emitter ancestor (NoShape if none). If fn returns false, the descendants
// of the node are skipped.
func (doc *Document) Walk(fn func(node, parent *Node, owner EmitterShape) bool) {
	walkNodes(doc.Nodes, nil, NoShape, fn)
}

func walkNodes(nodes []*Node, parent *Node, owner EmitterShape, fn func(node, parent *Node, owner EmitterShape) bool) {
	for _, node := range nodes {
		if !fn(node, parent, owner) {
			continue
		}
		childOwner := owner
		if e := node.Emitter(); e != nil {
			childOwner = e.Shape()
		}
		walkNodes(node.Children, node, childOwner, fn)
	}
}

// Count returns the number of nodes in the document.
func (doc *Document) Count() int {
	n := 0
	doc.Walk(func(*Node, *Node, EmitterShape) bool {
		n++
		return true
	})
	return n
}

// FindNode returns the first node in the document with the given name, or
// nil.
func (doc *Document) FindNode(name string) (found *Node) {
	doc.Walk(func(node, _ *Node, _ EmitterShape) bool {
		if found == nil && node.Name == name {
			found = node
		}
		return found == nil
	})
	return found
}

// FullName returns the names of the ancestors of target and target itself,
// separated by a `.` character. Returns an empty string if target is not in
// the document.
func (doc *Document) FullName(target *Node) string {
	var path []*Node
	var find func(nodes []*Node) bool
	find = func(nodes []*Node) bool {
		for _, node := range nodes {
			path = append(path, node)
			if node == target || find(node.Children) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}
	if !find(doc.Nodes) {
		return ""
	}

	var full bytes.Buffer
	for i, node := range path {
		if i > 0 {
			full.WriteByte('.')
		}
		full.WriteString(node.Name)
	}
	return full.String()
}

// Decompile decompiles every node of the document. See Node.Decompile.
func (doc *Document) Decompile(full bool) (err error) {
	doc.Walk(func(node, _ *Node, owner EmitterShape) bool {
		if err != nil {
			return false
		}
		if e := node.Decompile(owner, full); e != nil {
			err = fmt.Errorf("node %q: %w", doc.FullName(node), e)
			return false
		}
		return true
	})
	return err
}

// Compile compiles every node of the document. See Node.Compile.
func (doc *Document) Compile() (err error) {
	doc.Walk(func(node, _ *Node, owner EmitterShape) bool {
		if err != nil {
			return false
		}
		if e := node.Compile(owner); e != nil {
			err = fmt.Errorf("node %q: %w", doc.FullName(node), e)
			return false
		}
		return true
	})
	return err
}
