package empfile

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDocumentYAML(t *testing.T) {
	doc := testTree()
	smp := NewTextureSampler(4)
	smp.Scroll = &SpriteSheetScroll{Keyframes: []ScrollKeyframe{
		{Time: 0, ScaleU: 1, ScaleV: 1},
		{Time: 5, ScrollU: 0.5, ScaleU: 1, ScaleV: 1},
	}}
	doc.AddSampler(smp)
	spark := doc.FindNode("Spark")
	spark.Emission().Texture.Samplers[1] = smp
	spark.Emission().Texture.Color1.A.SetKeyframe(3, 0.25)

	b, err := doc.YAML()
	if err != nil {
		t.Fatalf("marshal: %s", err)
	}

	var out struct {
		Version string `yaml:"version"`
		Nodes   []struct {
			Name     string `yaml:"name"`
			Kind     string `yaml:"kind"`
			Children []struct {
				Name     string `yaml:"name"`
				Shape    string `yaml:"shape"`
				Children []struct {
					Emission string `yaml:"emission"`
					Tracks   map[string]struct {
						Keyframes []struct {
							T uint16  `yaml:"t"`
							V float32 `yaml:"v"`
						} `yaml:"keyframes"`
					} `yaml:"tracks"`
					Texture struct {
						Samplers []int `yaml:"samplers"`
					} `yaml:"texture"`
				} `yaml:"children"`
			} `yaml:"children"`
		} `yaml:"nodes"`
		Samplers []struct {
			PixelIndex uint8  `yaml:"pixel_index"`
			Scroll     string `yaml:"scroll"`
			Keyframes  []struct {
				T int32 `yaml:"t"`
			} `yaml:"keyframes"`
		} `yaml:"samplers"`
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %s\n%s", err, b)
	}

	if out.Version != "Xenoverse2" {
		t.Errorf("unexpected version %q", out.Version)
	}
	if len(out.Nodes) != 2 || out.Nodes[0].Kind != "Null" {
		t.Fatalf("unexpected nodes:\n%s", b)
	}
	burst := out.Nodes[0].Children[0]
	if burst.Name != "Burst" || burst.Shape != "Sphere" {
		t.Errorf("unexpected emitter %q (%s)", burst.Name, burst.Shape)
	}
	em := burst.Children[0]
	if em.Emission != "AutoOriented" {
		t.Errorf("unexpected emission %q", em.Emission)
	}
	if s := em.Texture.Samplers; len(s) != 2 || s[0] != -1 || s[1] != 0 {
		t.Errorf("unexpected texture slots %v", s)
	}
	alpha, ok := em.Tracks["Color1.A"]
	if !ok || len(alpha.Keyframes) != 1 || alpha.Keyframes[0].T != 3 || alpha.Keyframes[0].V != 0.25 {
		t.Errorf("unexpected alpha track:\n%s", b)
	}

	if len(out.Samplers) != 1 {
		t.Fatalf("unexpected samplers:\n%s", b)
	}
	if s := out.Samplers[0]; s.PixelIndex != 4 || s.Scroll != "SpriteSheet" || len(s.Keyframes) != 2 || s.Keyframes[1].T != 5 {
		t.Errorf("unexpected sampler %+v", s)
	}
}
