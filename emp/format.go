// Package emp implements a decoder and encoder for the binary EMP
// particle-effect format.
//
// The easiest way to decode and encode files is through the Parse and
// Serialize functions. These convert directly between byte slices and
// Documents specified by the empfile package. For more control, a Decoder or
// Encoder may be configured.
//
// # Overview
//
// An EMP file is a 32-byte header followed by a tree of node records and a
// table of texture samplers. Nodes are linked by offsets relative to the
// start of each node record rather than by nesting: every node header holds
// the offset of its next sibling and of its first child, with 0 meaning
// absent. Other variable-length data, such as animated parameters, modifier
// groups and point lists, is likewise located by relative offsets.
//
// When decoding, the chain of records is walked into an arena of nodes
// linked by index, which is then converted into the Children lists of the
// Document. When encoding, the Document is linearized into the arena in
// depth-first pre-order, and every offset is recorded as a patch against a
// label. The patches are resolved once the whole file has been written.
//
// The width of texture sampler records depends on the format version. Files
// of unknown versions can be decoded only if their sampler table is empty.
package emp

import (
	"github.com/emptools/empfile"
)

// signature is the magic number at the start of every file.
const signature = "#EMP"

// meshSignature is the magic number of embedded mesh blobs.
const meshSignature = "#EMG"

// endianMark is the byte-order mark as read in little-endian.
const endianMark = 0xFFFE

// swappedEndianMark is the byte-order mark of a big-endian file.
const swappedEndianMark = 0xFEFF

// Sizes of fixed records.
const (
	headerSize       = 32
	nodeHeaderSize   = 160
	emissionSize     = 32
	textureSize      = 112
	variantSize      = 16
	paramHeaderSize  = 20
	modifierSize     = 16
	samplerBaseSize  = 12
	nodeAlignment    = 16
	meshAlignment    = 16
	blockAlignment   = 4
	samplerAlignment = 16
	maxRecordCount   = 0xFFFF
	maxTopLevelCount = 0x7FFF
)

// Positions of offset fields within a node header.
const (
	nodeParamOffsetField    = 104
	nodeModifierOffsetField = 108
	nodeNextField           = 152
	nodeChildField          = 156
)

// Kind bytes of a node header.
const (
	kindNull     = 0
	kindEmitter  = 1
	kindEmission = 2
)

// fileHeader is the header at the start of a file.
type fileHeader struct {
	Signature     [4]byte
	EndianMark    uint16
	HeaderSize    uint16
	Version       uint16
	Reserved      uint16
	RootCount     int16
	SamplerCount  int16
	RootOffset    uint32
	SamplerOffset uint32
	Reserved2     [8]byte
}

// nodeHeader is the fixed part of every node record. Offsets are relative to
// the start of the record.
type nodeHeader struct {
	Name    [empfile.NameSize]byte
	Flags   uint8
	Flags2  uint8
	Kind    uint8
	Variant uint8

	Lifetime               uint16
	LifetimeVariance       uint16
	StartTime              uint16
	StartTimeVariance      uint16
	MaxInstances           uint16
	Burst                  uint16
	BurstFrequency         uint16
	BurstFrequencyVariance uint16

	Position         [3]float32
	PositionVariance [3]float32
	Rotation         [3]float32
	RotationVariance [3]float32

	ParamCount     uint16
	ModifierCount  uint16
	ParamOffset    uint32
	ModifierOffset uint32

	Reserved [40]byte

	NextSibling uint32
	FirstChild  uint32
}

// name returns the name field up to the first null byte.
func (h *nodeHeader) name() string {
	for i, c := range h.Name {
		if c == 0 {
			return string(h.Name[:i])
		}
	}
	return string(h.Name[:])
}

// trackPair is a value and its variance.
type trackPair struct {
	Value    float32
	Variance float32
}

func pairOf(t *empfile.Track) trackPair {
	return trackPair{Value: t.Value, Variance: t.Variance}
}

func (p trackPair) load(t *empfile.Track) {
	t.Value = p.Value
	t.Variance = p.Variance
}

type coneRecord struct {
	Position trackPair
	Velocity trackPair
	Angle    trackPair
}

type sphereRecord struct {
	Size     trackPair
	Velocity trackPair
}

type circleRecord struct {
	Size     trackPair
	Position trackPair
	Velocity trackPair
	Angle    trackPair
}

type squareRecord struct {
	Position trackPair
	Velocity trackPair
	Angle    trackPair
	Size     trackPair
	Size2    trackPair
}

// emissionRecord is the common part of an emission payload.
type emissionRecord struct {
	Billboard             uint8
	Reserved              [3]byte
	StartRotation         float32
	StartRotationVariance float32
	ActiveRotation        trackPair
	RotationAxis          [3]float32
}

// textureRecord follows the emission record. SamplerListOffset is relative
// to the start of the texture record.
type textureRecord struct {
	MaterialID        uint16
	Reserved          uint16
	RenderDepth       float32
	SamplerCount      uint8
	Reserved2         [3]byte
	SamplerListOffset uint32
	Color1            [4]float32
	Color1Variance    [4]float32
	Color2            [4]float32
	Color2Variance    [4]float32
	ScaleBase         trackPair
	ScaleX            trackPair
	ScaleY            trackPair
	Reserved3         [8]byte
}

// coneExtrudeRecord is the variant record of a ConeExtrude emission.
// PointOffset is relative to the node.
type coneExtrudeRecord struct {
	Duration         uint16
	DurationVariance uint16
	StepDelay        uint16
	Reserved         uint16
	PointCount       uint16
	Reserved2        uint16
	PointOffset      uint32
}

// meshRecord is the variant record of a Mesh emission. MeshOffset is
// relative to the node.
type meshRecord struct {
	Reserved   uint32
	MeshOffset uint32
	MeshSize   uint32
	Reserved2  uint32
}

// shapeDrawRecord is the variant record of a ShapeDraw emission.
// PointOffset is relative to the node.
type shapeDrawRecord struct {
	Reserved    uint16
	PointCount  uint16
	PointOffset uint32
	Params      [2]float32
}

// paramHeader is the header of an animated parameter. Offsets are relative
// to the start of the header.
type paramHeader struct {
	Packed      uint8
	Loop        uint8
	Reserved    uint16
	Default     float32
	Duration    uint16
	Count       uint16
	KeyOffset   uint32
	IndexOffset uint32
}

const (
	packedParamMask       = 0x0F
	packedComponentShift  = 4
	packedComponentMask   = 0x07
	packedInterpolateFlag = 0x80
)

func packParameter(p *empfile.AnimatedParameter) uint8 {
	b := p.Parameter&packedParamMask | (p.Component&packedComponentMask)<<packedComponentShift
	if p.Interpolate {
		b |= packedInterpolateFlag
	}
	return b
}

func unpackParameter(b uint8, p *empfile.AnimatedParameter) {
	p.Parameter = b & packedParamMask
	p.Component = b >> packedComponentShift & packedComponentMask
	p.Interpolate = b&packedInterpolateFlag != 0
}

// modifierRecord is the header of a modifier group. ParamOffset is relative
// to the start of the record.
type modifierRecord struct {
	Type        uint8
	Flags       uint8
	Reserved    uint16
	ParamCount  uint16
	Reserved2   uint16
	ParamOffset uint32
	Reserved3   uint32
}

// samplerRecord is the fixed part of a texture sampler record. It is
// followed by a scroll area whose size depends on the version.
type samplerRecord struct {
	Reserved   uint8
	PixelIndex uint8
	Reserved2  [2]byte
	FilterMin  uint8
	FilterMag  uint8
	RepeatU    uint8
	RepeatV    uint8
	SymmetryU  uint8
	SymmetryV  uint8
	ScrollType uint16
}

// spriteSheetRecord begins the scroll area of a SpriteSheet sampler. Offset
// is relative to the start of the sampler record.
type spriteSheetRecord struct {
	Reserved uint16
	Count    uint16
	Offset   uint32
}

// speedRecord begins the scroll area of a ConstantSpeed sampler.
type speedRecord struct {
	SpeedU float32
	SpeedV float32
}

// scrollBody is the part of a scroll keyframe common to all versions.
type scrollBody struct {
	ScrollU float32
	ScrollV float32
	ScaleU  float32
	ScaleV  float32
}

// layout holds the version-dependent widths of sampler records.
type layout struct {
	// SamplerSize is the width of a sampler record.
	SamplerSize int64
	// KeySize is the width of a scroll keyframe within a keyframe list,
	// including its time.
	KeySize int64
	// Extra indicates whether scroll keyframes carry the Extra values.
	Extra bool
}

// scrollAreaSize returns the size of the scroll area of a sampler record.
func (l layout) scrollAreaSize() int64 {
	return l.SamplerSize - samplerBaseSize
}

// layouts is never modified.
var layouts = map[empfile.Version]layout{
	empfile.VersionXenoverse2: {SamplerSize: 28, KeySize: 20},
	empfile.VersionSDBH:       {SamplerSize: 36, KeySize: 28, Extra: true},
}

// layoutOf returns the layout of a version.
func layoutOf(v empfile.Version) (layout, error) {
	l, ok := layouts[v]
	if !ok {
		return layout{}, UnsupportedVersionError(v)
	}
	return l, nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func alignUp(n, a int64) int64 {
	return (n + a - 1) / a * a
}
