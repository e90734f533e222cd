package empfile

import (
	"gopkg.in/yaml.v3"
)

// The yaml* types form the exported view of a Document. Tracks are keyed by
// the names of their fields, and texture slots by sampler index.

type yamlDocument struct {
	Version  string        `yaml:"version"`
	Nodes    []yamlNode    `yaml:"nodes,omitempty"`
	Samplers []yamlSampler `yaml:"samplers,omitempty"`
}

type yamlNode struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Shape    string `yaml:"shape,omitempty"`
	Emission string `yaml:"emission,omitempty"`

	Flags  NodeFlags  `yaml:"flags,omitempty"`
	Flags2 NodeFlags2 `yaml:"flags2,omitempty"`

	Lifetime     [2]uint16 `yaml:"lifetime,flow"`
	StartTime    [2]uint16 `yaml:"start_time,flow"`
	MaxInstances uint16    `yaml:"max_instances,omitempty"`
	Burst        uint16    `yaml:"burst,omitempty"`
	BurstFreq    [2]uint16 `yaml:"burst_frequency,flow"`

	Tracks     map[string]yamlTrack `yaml:"tracks,omitempty"`
	Texture    *yamlTexture         `yaml:"texture,omitempty"`
	Points     interface{}          `yaml:"points,omitempty"`
	MeshSize   int                  `yaml:"mesh_size,omitempty"`
	Parameters []yamlParameter      `yaml:"parameters,omitempty"`
	Modifiers  []yamlModifier       `yaml:"modifiers,omitempty"`
	Children   []yamlNode           `yaml:"children,omitempty"`
}

type yamlTrack struct {
	Value       float32        `yaml:"value"`
	Variance    float32        `yaml:"variance,omitempty"`
	Interpolate bool           `yaml:"interpolate,omitempty"`
	Loop        bool           `yaml:"loop,omitempty"`
	Keyframes   []yamlKeyframe `yaml:"keyframes,omitempty"`
}

type yamlKeyframe struct {
	Time  uint16  `yaml:"t"`
	Value float32 `yaml:"v"`
}

type yamlParameter struct {
	Parameter   uint8          `yaml:"parameter"`
	Component   uint8          `yaml:"component"`
	Interpolate bool           `yaml:"interpolate,omitempty"`
	Loop        bool           `yaml:"loop,omitempty"`
	Default     float32        `yaml:"default,omitempty"`
	Keyframes   []yamlKeyframe `yaml:"keyframes,omitempty"`
}

type yamlModifier struct {
	Type       string               `yaml:"type"`
	Flags      uint8                `yaml:"flags,omitempty"`
	Tracks     map[string]yamlTrack `yaml:"tracks,omitempty"`
	Parameters []yamlParameter      `yaml:"parameters,omitempty"`
}

type yamlTexture struct {
	MaterialID  uint16  `yaml:"material_id"`
	RenderDepth float32 `yaml:"render_depth,omitempty"`
	// Samplers holds an index into the sampler table per slot, or -1.
	Samplers []int `yaml:"samplers,flow"`
}

type yamlSampler struct {
	PixelIndex uint8                `yaml:"pixel_index"`
	Filter     [2]Filtering         `yaml:"filter,flow"`
	Repeat     [2]Repetition        `yaml:"repeat,flow"`
	Symmetry   [2]uint8             `yaml:"symmetry,flow"`
	Scroll     string               `yaml:"scroll"`
	Speed      []float32            `yaml:"speed,flow,omitempty"`
	Keyframes  []yamlScrollKeyframe `yaml:"keyframes,omitempty"`
}

type yamlScrollKeyframe struct {
	Time  int32      `yaml:"t"`
	UV    [4]float32 `yaml:"uv,flow"`
	Extra [2]float32 `yaml:"extra,flow,omitempty"`
}

func yamlKeyframes(keys []Keyframe) []yamlKeyframe {
	if len(keys) == 0 {
		return nil
	}
	out := make([]yamlKeyframe, len(keys))
	for i, k := range keys {
		out[i] = yamlKeyframe{Time: k.Time, Value: k.Value}
	}
	return out
}

func yamlParameters(params []AnimatedParameter) []yamlParameter {
	var out []yamlParameter
	for _, p := range params {
		out = append(out, yamlParameter{
			Parameter:   p.Parameter,
			Component:   p.Component,
			Interpolate: p.Interpolate,
			Loop:        p.Loop,
			Default:     p.Default,
			Keyframes:   yamlKeyframes(p.Keyframes),
		})
	}
	return out
}

func yamlTracks(bindings []binding, track func(Field) *Track) map[string]yamlTrack {
	tracks := map[string]yamlTrack{}
	for _, b := range bindings {
		t := track(b.Field)
		if t == nil {
			continue
		}
		yt := yamlTrack{Value: t.Value, Variance: t.Variance}
		if t.Animated() {
			yt.Interpolate = t.Interpolate
			yt.Loop = t.Loop
			yt.Keyframes = yamlKeyframes(t.Keyframes)
		}
		tracks[b.Field.String()] = yt
	}
	if len(tracks) == 0 {
		return nil
	}
	return tracks
}

func (doc *Document) yamlNodes(nodes []*Node, owner EmitterShape) []yamlNode {
	var out []yamlNode
	for _, n := range nodes {
		y := yamlNode{
			Name:         n.Name,
			Kind:         n.Kind().String(),
			Flags:        n.Flags,
			Flags2:       n.Flags2,
			Lifetime:     [2]uint16{n.Lifetime, n.LifetimeVariance},
			StartTime:    [2]uint16{n.StartTime, n.StartTimeVariance},
			MaxInstances: n.MaxInstances,
			Burst:        n.Burst,
			BurstFreq:    [2]uint16{n.BurstFrequency, n.BurstFrequencyVariance},
			Tracks:       yamlTracks(nodeBindings(n.schemaContext(owner)), n.Track),
			Parameters:   yamlParameters(n.AnimatedParameters),
		}

		childOwner := owner
		switch p := n.Payload.(type) {
		case Emitter:
			y.Shape = p.Shape().String()
			childOwner = p.Shape()
		case *Emission:
			y.Emission = p.EmissionKind().String()
			y.Texture = &yamlTexture{
				MaterialID:  p.Texture.MaterialID,
				RenderDepth: p.Texture.RenderDepth,
			}
			for _, s := range p.Texture.Samplers {
				y.Texture.Samplers = append(y.Texture.Samplers, doc.SamplerIndex(s))
			}
			switch d := p.Data.(type) {
			case *ConeExtrude:
				y.Points = d.Points
			case *ShapeDraw:
				y.Points = d.Points
			case *MeshEmission:
				if raw, ok := d.Mesh.(RawMesh); ok {
					y.MeshSize = len(raw)
				}
			}
		}

		for _, m := range n.Modifiers {
			y.Modifiers = append(y.Modifiers, yamlModifier{
				Type:       m.Type.String(),
				Flags:      m.Flags,
				Tracks:     yamlTracks(modifierBindings(m.Type), m.Track),
				Parameters: yamlParameters(m.AnimatedParameters),
			})
		}
		y.Children = doc.yamlNodes(n.Children, childOwner)
		out = append(out, y)
	}
	return out
}

func yamlScrollKey(k ScrollKeyframe) yamlScrollKeyframe {
	return yamlScrollKeyframe{
		Time:  k.Time,
		UV:    [4]float32{k.ScrollU, k.ScrollV, k.ScaleU, k.ScaleV},
		Extra: k.Extra,
	}
}

// MarshalYAML implements yaml.Marshaler. The document is exported in its
// current form: tracks of a compiled document hold only their values, and
// the keyframes appear under parameters.
func (doc *Document) MarshalYAML() (interface{}, error) {
	y := yamlDocument{
		Version: doc.Version.String(),
		Nodes:   doc.yamlNodes(doc.Nodes, NoShape),
	}
	for _, s := range doc.Samplers {
		ys := yamlSampler{
			PixelIndex: s.PixelIndex,
			Filter:     [2]Filtering{s.FilterMin, s.FilterMag},
			Repeat:     [2]Repetition{s.RepeatU, s.RepeatV},
			Symmetry:   [2]uint8{s.SymmetryU, s.SymmetryV},
			Scroll:     s.ScrollType().String(),
		}
		switch scroll := s.Scroll.(type) {
		case *StaticScroll:
			ys.Keyframes = []yamlScrollKeyframe{yamlScrollKey(scroll.Key)}
		case *ConstantScroll:
			ys.Speed = []float32{scroll.SpeedU, scroll.SpeedV}
		case *SpriteSheetScroll:
			for _, k := range scroll.Keyframes {
				ys.Keyframes = append(ys.Keyframes, yamlScrollKey(k))
			}
		}
		y.Samplers = append(y.Samplers, ys)
	}
	return y, nil
}

// YAML returns the YAML encoding of the document.
func (doc *Document) YAML() ([]byte, error) {
	return yaml.Marshal(doc)
}
