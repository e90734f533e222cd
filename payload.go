package empfile

// Payload is the kind-specific data of a Node. It is implemented by the
// emitter shapes and by *Emission.
type Payload interface {
	// Kind returns the node kind implied by the payload.
	Kind() NodeKind

	// copyPayload returns a deep copy of the payload. Sampler references are
	// shared with the original.
	copyPayload() Payload
}

// Emitter is the payload of a KindEmitter node. It is implemented by
// *ConeEmitter, *SphereEmitter, *CircleEmitter and *SquareEmitter.
type Emitter interface {
	Payload
	Shape() EmitterShape
}

// NewEmitter returns an empty emitter of the given shape, or nil if the
// shape is unknown.
func NewEmitter(shape EmitterShape) Emitter {
	switch shape {
	case ShapeCone:
		return &ConeEmitter{}
	case ShapeSphere:
		return &SphereEmitter{}
	case ShapeCircle:
		return &CircleEmitter{}
	case ShapeSquare:
		return &SquareEmitter{}
	}
	return nil
}

// ConeEmitter spawns particles from a point, in a cone around the Y axis.
type ConeEmitter struct {
	// Position is the offset along the emission axis.
	Position Track
	Velocity Track
	// Angle is the opening angle of the cone, in degrees.
	Angle Track
}

func (*ConeEmitter) Kind() NodeKind      { return KindEmitter }
func (*ConeEmitter) Shape() EmitterShape { return ShapeCone }
func (e *ConeEmitter) copyPayload() Payload {
	return &ConeEmitter{Position: e.Position.copy(), Velocity: e.Velocity.copy(), Angle: e.Angle.copy()}
}

// SphereEmitter spawns particles on the surface of a sphere.
type SphereEmitter struct {
	// Size is the radius of the sphere.
	Size     Track
	Velocity Track
}

func (*SphereEmitter) Kind() NodeKind      { return KindEmitter }
func (*SphereEmitter) Shape() EmitterShape { return ShapeSphere }
func (e *SphereEmitter) copyPayload() Payload {
	return &SphereEmitter{Size: e.Size.copy(), Velocity: e.Velocity.copy()}
}

// CircleEmitter spawns particles on a ring.
type CircleEmitter struct {
	// Size is the radius of the ring.
	Size     Track
	Position Track
	Velocity Track
	Angle    Track
}

func (*CircleEmitter) Kind() NodeKind      { return KindEmitter }
func (*CircleEmitter) Shape() EmitterShape { return ShapeCircle }
func (e *CircleEmitter) copyPayload() Payload {
	return &CircleEmitter{
		Size:     e.Size.copy(),
		Position: e.Position.copy(),
		Velocity: e.Velocity.copy(),
		Angle:    e.Angle.copy(),
	}
}

// SquareEmitter spawns particles within a rectangle of Size by Size2.
type SquareEmitter struct {
	Position Track
	Velocity Track
	Angle    Track
	Size     Track
	Size2    Track
}

func (*SquareEmitter) Kind() NodeKind      { return KindEmitter }
func (*SquareEmitter) Shape() EmitterShape { return ShapeSquare }
func (e *SquareEmitter) copyPayload() Payload {
	return &SquareEmitter{
		Position: e.Position.copy(),
		Velocity: e.Velocity.copy(),
		Angle:    e.Angle.copy(),
		Size:     e.Size.copy(),
		Size2:    e.Size2.copy(),
	}
}

////////////////////////////////////////////////////////////////

// Emission is the payload of a KindEmission node.
type Emission struct {
	Billboard BillboardType

	StartRotation         float32
	StartRotationVariance float32

	// ActiveRotation is the rotation speed, in degrees per frame.
	ActiveRotation Track
	RotationAxis   [3]float32

	Texture Texture

	// Data holds the variant-specific data, and determines the
	// EmissionKind.
	Data EmissionData
}

// NewEmission returns an emission of the given kind with default texture
// values, or nil if the kind is unknown.
func NewEmission(kind EmissionKind) *Emission {
	e := &Emission{Texture: NewTexture()}
	switch kind {
	case EmissionAutoOriented, EmissionVisibleOnSpeed, EmissionDefault:
		e.Data = &Plane{Variant: kind}
	case EmissionConeExtrude:
		e.Data = &ConeExtrude{}
	case EmissionMesh:
		e.Data = &MeshEmission{}
	case EmissionShapeDraw:
		e.Data = &ShapeDraw{Points: []ShapePoint{{}}}
	default:
		return nil
	}
	return e
}

func (*Emission) Kind() NodeKind { return KindEmission }

// EmissionKind returns the variant of the emission.
func (e *Emission) EmissionKind() EmissionKind {
	if e.Data == nil {
		return EmissionDefault
	}
	return e.Data.EmissionKind()
}

func (e *Emission) copyPayload() Payload {
	c := *e
	c.ActiveRotation = e.ActiveRotation.copy()
	c.Texture = e.Texture.copy()
	if e.Data != nil {
		c.Data = e.Data.copyData()
	}
	return &c
}

// EmissionData is the variant-specific data of an Emission. It is
// implemented by *Plane, *ConeExtrude, *MeshEmission and *ShapeDraw.
type EmissionData interface {
	EmissionKind() EmissionKind
	copyData() EmissionData
}

// Plane is a textured quad. Variant is one of EmissionAutoOriented,
// EmissionVisibleOnSpeed or EmissionDefault.
type Plane struct {
	Variant EmissionKind
}

func (p *Plane) EmissionKind() EmissionKind { return p.Variant }

func (p *Plane) copyData() EmissionData {
	c := *p
	return &c
}

// ConeExtrude is a strip extruded along the particle path.
type ConeExtrude struct {
	Duration         uint16
	DurationVariance uint16
	// StepDelay is the number of frames between extrusion steps.
	StepDelay uint16
	Points    []ExtrudePoint
}

// ExtrudePoint is a scale/offset control point of a ConeExtrude.
type ExtrudePoint struct {
	ScaleFactor   float32
	ScaleAdd      float32
	OffsetFactor  float32
	OffsetFactor2 float32
}

func (*ConeExtrude) EmissionKind() EmissionKind { return EmissionConeExtrude }
func (c *ConeExtrude) copyData() EmissionData {
	d := *c
	d.Points = append([]ExtrudePoint(nil), c.Points...)
	return &d
}

// MeshEmission renders an embedded mesh.
type MeshEmission struct {
	Mesh Mesh
}

func (*MeshEmission) EmissionKind() EmissionKind { return EmissionMesh }
func (m *MeshEmission) copyData() EmissionData {
	if raw, ok := m.Mesh.(RawMesh); ok {
		return &MeshEmission{Mesh: append(RawMesh(nil), raw...)}
	}
	return &MeshEmission{Mesh: m.Mesh}
}

// ShapeDraw renders a filled 2D outline. A ShapeDraw has at least one
// point.
type ShapeDraw struct {
	Points []ShapePoint
	Params [2]float32
}

// ShapePoint is a point of a ShapeDraw outline.
type ShapePoint struct {
	X, Y float32
}

func (*ShapeDraw) EmissionKind() EmissionKind { return EmissionShapeDraw }
func (s *ShapeDraw) copyData() EmissionData {
	d := *s
	d.Points = append([]ShapePoint(nil), s.Points...)
	return &d
}

// Mesh is a mesh embedded in a MeshEmission. Its representation is owned by
// the mesh codec that produced it.
type Mesh interface{}

// RawMesh is a Mesh kept as its undecoded bytes.
type RawMesh []byte

////////////////////////////////////////////////////////////////

// MaxSamplers is the number of sampler slots of a Texture.
const MaxSamplers = 2

// Texture is the material state of an Emission.
type Texture struct {
	// MaterialID refers to a material outside of the document.
	MaterialID  uint16
	RenderDepth float32

	Color1 Color
	Color2 Color

	// ScaleBase is used when FlagUseScaleXY is unset. Otherwise, ScaleX and
	// ScaleY are used, and ScaleBase is applied to both.
	ScaleBase Track
	ScaleX    Track
	ScaleY    Track

	// Samplers refers to entries of the Document's Samplers list. A nil slot
	// is absent.
	Samplers [MaxSamplers]*TextureSampler
}

// NewTexture returns a Texture with opaque white colors and a unit scale.
func NewTexture() Texture {
	var t Texture
	for _, c := range []*Color{&t.Color1, &t.Color2} {
		c.R.Value, c.G.Value, c.B.Value, c.A.Value = 1, 1, 1, 1
	}
	t.ScaleBase.Value = 1
	t.ScaleX.Value = 1
	t.ScaleY.Value = 1
	return t
}

// SamplerCount returns the number of slots up to and including the last
// populated slot.
func (t *Texture) SamplerCount() int {
	for i := len(t.Samplers) - 1; i >= 0; i-- {
		if t.Samplers[i] != nil {
			return i + 1
		}
	}
	return 0
}

func (t *Texture) copy() Texture {
	c := *t
	c.Color1 = t.Color1.copy()
	c.Color2 = t.Color2.copy()
	c.ScaleBase = t.ScaleBase.copy()
	c.ScaleX = t.ScaleX.copy()
	c.ScaleY = t.ScaleY.copy()
	return c
}
