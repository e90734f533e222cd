package empfile

import (
	"strconv"
)

// Version is the format version tag of a Document. Values other than the
// known versions are retained as-is.
type Version uint16

const (
	VersionXenoverse2 Version = 37568 // Layout used by Xenoverse 2.
	VersionSDBH       Version = 37632 // Layout with widened texture records.
)

func (v Version) String() string {
	switch v {
	case VersionXenoverse2:
		return "Xenoverse2"
	case VersionSDBH:
		return "SDBH"
	}
	return "Version(" + strconv.Itoa(int(v)) + ")"
}

// NodeKind selects which payload is present on a Node.
type NodeKind uint8

const (
	KindNull     NodeKind = iota // No payload; groups children.
	KindEmitter                  // Spawns particles from a shape.
	KindEmission                 // Renders a particle.
)

var kindStrings = map[NodeKind]string{
	KindNull:     "Null",
	KindEmitter:  "Emitter",
	KindEmission: "Emission",
}

func (k NodeKind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return "Invalid"
}

// Valid returns whether k is a known node kind.
func (k NodeKind) Valid() bool {
	_, ok := kindStrings[k]
	return ok
}

// EmitterShape is the distribution shape of an emitter.
type EmitterShape uint8

const (
	ShapeCone   EmitterShape = iota // Point or cone, along the Y axis.
	ShapeSphere                     // Surface of a sphere.
	ShapeCircle                     // Ring on the XZ plane.
	ShapeSquare                     // Rectangle on the XZ plane.

	// NoShape indicates the absence of an owning emitter.
	NoShape EmitterShape = 0xFF
)

var shapeStrings = map[EmitterShape]string{
	ShapeCone:   "Cone",
	ShapeSphere: "Sphere",
	ShapeCircle: "Circle",
	ShapeSquare: "Square",
	NoShape:     "None",
}

func (s EmitterShape) String() string {
	if str, ok := shapeStrings[s]; ok {
		return str
	}
	return "Invalid"
}

// EmissionKind is the rendering variant of an emission.
type EmissionKind uint8

const (
	EmissionAutoOriented   EmissionKind = iota // Plane facing the camera.
	EmissionVisibleOnSpeed                     // Plane hidden while stationary.
	EmissionDefault                            // Plane with fixed orientation.
	EmissionConeExtrude                        // Extruded cone strip.
	EmissionMesh                               // Embedded mesh.
	EmissionShapeDraw                          // Filled 2D outline.
)

var emissionStrings = map[EmissionKind]string{
	EmissionAutoOriented:   "AutoOriented",
	EmissionVisibleOnSpeed: "VisibleOnSpeed",
	EmissionDefault:        "Default",
	EmissionConeExtrude:    "ConeExtrude",
	EmissionMesh:           "Mesh",
	EmissionShapeDraw:      "ShapeDraw",
}

func (k EmissionKind) String() string {
	if s, ok := emissionStrings[k]; ok {
		return s
	}
	return "Invalid"
}

// IsPlane returns whether the kind is one of the plane variants.
func (k EmissionKind) IsPlane() bool {
	return k <= EmissionDefault
}

// BillboardType is the orientation mode of an emission.
type BillboardType uint8

const (
	BillboardCamera BillboardType = iota
	BillboardFront
	BillboardNone
)

func (b BillboardType) String() string {
	switch b {
	case BillboardCamera:
		return "Camera"
	case BillboardFront:
		return "Front"
	case BillboardNone:
		return "None"
	}
	return "BillboardType(" + strconv.Itoa(int(b)) + ")"
}

// NodeFlags is the first flag set of a node.
type NodeFlags uint8

const (
	FlagLoop              NodeFlags = 1 << iota // Restart after Lifetime.
	FlagFlashOnGeneration                       // Flash on the first frame.
	FlagHide                                    // Not rendered.
	FlagUseScaleXY                              // Decoupled X/Y scale.
	FlagUseColor2                               // Interpolate toward Color2.
	FlagRandomRotation                          // Random rotation direction.
)

// Has returns whether every bit of f is set.
func (flags NodeFlags) Has(f NodeFlags) bool { return flags&f == f }

// NodeFlags2 is the second flag set of a node.
type NodeFlags2 uint8

const (
	Flag2RandomUpVector   NodeFlags2 = 1 << iota // Randomize the up vector.
	Flag2EnableDepthWrite                        // Write particle depth.
	Flag2ScaleWithParent                         // Inherit parent scale.
	Flag2ScaleDistortion                         // Scale by velocity.
)

// Has returns whether every bit of f is set.
func (flags NodeFlags2) Has(f NodeFlags2) bool { return flags&f == f }

// Filtering is the texture filtering mode of a sampler.
type Filtering uint8

const (
	FilterNone Filtering = iota
	FilterPoint
	FilterLinear
)

// Repetition is the texture address mode of a sampler axis.
type Repetition uint8

const (
	RepeatWrap Repetition = iota
	RepeatMirror
	RepeatClamp
	RepeatBorder
)

// ScrollType tags the scroll animation variant of a sampler.
type ScrollType uint16

const (
	ScrollStatic        ScrollType = iota // One implicit keyframe.
	ScrollConstantSpeed                   // Continuous UV scrolling.
	ScrollSpriteSheet                     // Keyframed UV frames.
)

func (s ScrollType) String() string {
	switch s {
	case ScrollStatic:
		return "Static"
	case ScrollConstantSpeed:
		return "ConstantSpeed"
	case ScrollSpriteSheet:
		return "SpriteSheet"
	}
	return "Invalid"
}
