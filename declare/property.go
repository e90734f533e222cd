package declare

import (
	"strings"

	"github.com/emptools/empfile"
)

type property struct {
	name  string
	value []interface{}
}

func (property) element()        {}
func (property) samplerElement() {}

// Property declares a property of a node or sampler. It defines the name of
// the property, and its value. Names are case-insensitive. A property that
// does not apply to the node or sampler it is declared in is ignored.
//
// The value argument may be one or more numbers of any type except for
// complex numbers. Values that are not numbers are treated as zero, unless
// noted otherwise. Values missing from the end are treated as zero.
//
// Node properties, and the values they expect, are the following:
//
//	Flags, Flags2, MaxInstances, Burst:
//	    A single number.
//
//	Lifetime, StartTime, BurstFrequency:
//	    A number, and optionally its variance.
//
// Emission node properties:
//
//	Billboard, MaterialID, RenderDepth:
//	    A single number.
//
//	StartRotation:
//	    A number, and optionally its variance.
//
//	RotationAxis:
//	    3 numbers, corresponding to the X, Y, and Z components.
//
//	Duration:
//	    For ConeExtrude, a number of frames, and optionally its variance.
//
//	StepDelay:
//	    For ConeExtrude, a single number.
//
//	Points:
//	    For ConeExtrude, groups of 4 numbers, corresponding to the
//	    ScaleFactor, ScaleAdd, OffsetFactor, and OffsetFactor2 fields of
//	    each point. For ShapeDraw, groups of 2 numbers, corresponding to the
//	    X and Y fields of each point. An incomplete group is dropped.
//
//	ShapeParams:
//	    For ShapeDraw, 2 numbers.
//
//	Mesh:
//	    For Mesh, a single string or []byte, which becomes a RawMesh.
//
// Sampler properties:
//
//	PixelIndex:
//	    A single number.
//
//	Filter:
//	    2 numbers, corresponding to the FilterMin and FilterMag fields.
//
//	Repeat:
//	    2 numbers, corresponding to the RepeatU and RepeatV fields.
//
//	Symmetry:
//	    2 numbers, corresponding to the SymmetryU and SymmetryV fields.
func Property(name string, value ...interface{}) property {
	return property{name: strings.ToLower(name), value: value}
}

// at returns the i-th value, or nil.
func (prop property) at(i int) interface{} {
	if i < len(prop.value) {
		return prop.value[i]
	}
	return nil
}

func (prop property) f32(i int) float32 { return normFloat32(prop.at(i)) }
func (prop property) u16(i int) uint16  { return normUint16(prop.at(i)) }
func (prop property) u8(i int) uint8    { return normUint8(prop.at(i)) }

func (prop property) setNode(n *empfile.Node) {
	switch prop.name {
	case "flags":
		n.Flags = empfile.NodeFlags(prop.u8(0))
	case "flags2":
		n.Flags2 = empfile.NodeFlags2(prop.u8(0))
	case "maxinstances":
		n.MaxInstances = prop.u16(0)
	case "burst":
		n.Burst = prop.u16(0)
	case "lifetime":
		n.Lifetime, n.LifetimeVariance = prop.u16(0), prop.u16(1)
	case "starttime":
		n.StartTime, n.StartTimeVariance = prop.u16(0), prop.u16(1)
	case "burstfrequency":
		n.BurstFrequency, n.BurstFrequencyVariance = prop.u16(0), prop.u16(1)
	}

	e := n.Emission()
	if e == nil {
		return
	}
	switch prop.name {
	case "billboard":
		e.Billboard = empfile.BillboardType(prop.u8(0))
	case "materialid":
		e.Texture.MaterialID = prop.u16(0)
	case "renderdepth":
		e.Texture.RenderDepth = prop.f32(0)
	case "startrotation":
		e.StartRotation, e.StartRotationVariance = prop.f32(0), prop.f32(1)
	case "rotationaxis":
		e.RotationAxis = [3]float32{prop.f32(0), prop.f32(1), prop.f32(2)}
	}

	switch d := e.Data.(type) {
	case *empfile.ConeExtrude:
		switch prop.name {
		case "duration":
			d.Duration, d.DurationVariance = prop.u16(0), prop.u16(1)
		case "stepdelay":
			d.StepDelay = prop.u16(0)
		case "points":
			d.Points = nil
			for i := 0; i+4 <= len(prop.value); i += 4 {
				d.Points = append(d.Points, empfile.ExtrudePoint{
					ScaleFactor:   prop.f32(i),
					ScaleAdd:      prop.f32(i + 1),
					OffsetFactor:  prop.f32(i + 2),
					OffsetFactor2: prop.f32(i + 3),
				})
			}
		}
	case *empfile.ShapeDraw:
		switch prop.name {
		case "points":
			var points []empfile.ShapePoint
			for i := 0; i+2 <= len(prop.value); i += 2 {
				points = append(points, empfile.ShapePoint{X: prop.f32(i), Y: prop.f32(i + 1)})
			}
			if len(points) > 0 {
				d.Points = points
			}
		case "shapeparams":
			d.Params = [2]float32{prop.f32(0), prop.f32(1)}
		}
	case *empfile.MeshEmission:
		if prop.name == "mesh" {
			switch v := prop.at(0).(type) {
			case string:
				d.Mesh = empfile.RawMesh(v)
			case []byte:
				d.Mesh = empfile.RawMesh(append([]byte(nil), v...))
			}
		}
	}
}

func (prop property) setSampler(s *empfile.TextureSampler) {
	switch prop.name {
	case "pixelindex":
		s.PixelIndex = prop.u8(0)
	case "filter":
		s.FilterMin, s.FilterMag = empfile.Filtering(prop.u8(0)), empfile.Filtering(prop.u8(1))
	case "repeat":
		s.RepeatU, s.RepeatV = empfile.Repetition(prop.u8(0)), empfile.Repetition(prop.u8(1))
	case "symmetry":
		s.SymmetryU, s.SymmetryV = prop.u8(0), prop.u8(1)
	}
}

////////////////////////////////////////////////////////////////

// samplerElement is implemented by declarations that can be within a
// Sampler declaration.
type samplerElement interface {
	samplerElement()
}

// sampler represents the declaration of an empfile.TextureSampler.
type sampler struct {
	ref      string
	elements []samplerElement
}

func (sampler) primary() {}

// Declare evaluates the Sampler declaration.
func (dsmp sampler) Declare() *empfile.TextureSampler {
	s := empfile.NewTextureSampler(empfile.NoPixels)
	for _, e := range dsmp.elements {
		switch e := e.(type) {
		case property:
			e.setSampler(s)
		case scroll:
			s.Scroll = e.scroll()
		}
	}
	return s
}

// Sampler declares an empfile.TextureSampler. The ref argument is a string
// that Slot declarations use to refer to the sampler. Elements are Property
// and scroll declarations. Without a scroll declaration, the sampler has a
// static identity scroll.
func Sampler(ref string, elements ...samplerElement) sampler {
	return sampler{ref: ref, elements: elements}
}

// scroll is implemented by declarations of a sampler Scroll.
type scroll interface {
	samplerElement
	scroll() empfile.Scroll
}

type frame empfile.ScrollKeyframe

// Frame declares a scroll keyframe at the given time. The values correspond
// to the ScrollU, ScrollV, ScaleU, ScaleV, and Extra fields, in that order.
// Missing scale values default to 1.
func Frame(time interface{}, v ...interface{}) frame {
	f := frame(empfile.IdentityScrollKeyframe)
	f.Time = normInt32(time)
	fields := []*float32{&f.ScrollU, &f.ScrollV, &f.ScaleU, &f.ScaleV, &f.Extra[0], &f.Extra[1]}
	for i := 0; i < len(v) && i < len(fields); i++ {
		*fields[i] = normFloat32(v[i])
	}
	return f
}

type staticScroll frame

func (staticScroll) samplerElement() {}
func (s staticScroll) scroll() empfile.Scroll {
	key := empfile.ScrollKeyframe(s)
	key.Time = 0
	return &empfile.StaticScroll{Key: key}
}

// StaticScroll declares a static scroll with the values of f.
func StaticScroll(f frame) scroll {
	return staticScroll(f)
}

type constantScroll [2]float32

func (constantScroll) samplerElement() {}
func (s constantScroll) scroll() empfile.Scroll {
	return &empfile.ConstantScroll{SpeedU: s[0], SpeedV: s[1]}
}

// ConstantScroll declares a scroll of a constant speed along U and V.
func ConstantScroll(u, v interface{}) scroll {
	return constantScroll{normFloat32(u), normFloat32(v)}
}

type spriteSheet []frame

func (spriteSheet) samplerElement() {}
func (s spriteSheet) scroll() empfile.Scroll {
	keys := make([]empfile.ScrollKeyframe, len(s))
	for i, f := range s {
		keys[i] = empfile.ScrollKeyframe(f)
	}
	return &empfile.SpriteSheetScroll{Keyframes: keys}
}

// SpriteSheet declares a sprite sheet scroll with the given frames.
func SpriteSheet(frames ...frame) scroll {
	return spriteSheet(frames)
}
