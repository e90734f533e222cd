package empfile

// TextureSampler describes how a texture from an external pixel store is
// sampled by an Emission.
type TextureSampler struct {
	// PixelIndex is the handle of the texture within the external pixel
	// store. NoPixels indicates no texture.
	PixelIndex uint8

	FilterMin Filtering
	FilterMag Filtering
	RepeatU   Repetition
	RepeatV   Repetition
	SymmetryU uint8
	SymmetryV uint8

	// Scroll is the UV animation of the sampler. A nil Scroll is treated as
	// a StaticScroll with the identity keyframe.
	Scroll Scroll
}

// NoPixels is a PixelIndex that refers to no texture.
const NoPixels = 0xFF

// NewTextureSampler returns a sampler of the given pixel handle with a
// static identity scroll.
func NewTextureSampler(pixelIndex uint8) *TextureSampler {
	return &TextureSampler{
		PixelIndex: pixelIndex,
		FilterMin:  FilterLinear,
		FilterMag:  FilterLinear,
		Scroll:     &StaticScroll{Key: IdentityScrollKeyframe},
	}
}

// Copy returns a deep copy of the sampler.
func (s *TextureSampler) Copy() *TextureSampler {
	c := *s
	if s.Scroll != nil {
		c.Scroll = s.Scroll.copyScroll()
	}
	return &c
}

// ScrollType returns the tag of the sampler's Scroll variant.
func (s *TextureSampler) ScrollType() ScrollType {
	if s.Scroll == nil {
		return ScrollStatic
	}
	return s.Scroll.ScrollType()
}

// Scroll is the UV animation of a TextureSampler. It is implemented by
// *StaticScroll, *ConstantScroll and *SpriteSheetScroll.
type Scroll interface {
	ScrollType() ScrollType
	copyScroll() Scroll
}

// ScrollKeyframe is one frame of UV scroll and scale. Extra holds values
// present only in the SDBH layout.
type ScrollKeyframe struct {
	Time    int32
	ScrollU float32
	ScrollV float32
	ScaleU  float32
	ScaleV  float32
	Extra   [2]float32
}

// IdentityScrollKeyframe has no scroll and a unit scale.
var IdentityScrollKeyframe = ScrollKeyframe{ScaleU: 1, ScaleV: 1}

// StaticScroll holds exactly one keyframe, stored inline. Key.Time is not
// stored.
type StaticScroll struct {
	Key ScrollKeyframe
}

func (*StaticScroll) ScrollType() ScrollType { return ScrollStatic }

func (s *StaticScroll) copyScroll() Scroll {
	c := *s
	return &c
}

// ConstantScroll scrolls UVs at a fixed rate per frame.
type ConstantScroll struct {
	SpeedU float32
	SpeedV float32
}

func (*ConstantScroll) ScrollType() ScrollType { return ScrollConstantSpeed }

func (s *ConstantScroll) copyScroll() Scroll {
	c := *s
	return &c
}

// SpriteSheetScroll steps through a list of UV frames.
type SpriteSheetScroll struct {
	Keyframes []ScrollKeyframe
}

func (*SpriteSheetScroll) ScrollType() ScrollType { return ScrollSpriteSheet }

func (s *SpriteSheetScroll) copyScroll() Scroll {
	return &SpriteSheetScroll{Keyframes: append([]ScrollKeyframe(nil), s.Keyframes...)}
}
