package emp

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/emptools/empfile"
	"github.com/emptools/empfile/errors"
)

// newEmpty returns a file containing a single Null node named "NewEmpty".
func newEmpty() []byte {
	b := make([]byte, headerSize+nodeHeaderSize)
	copy(b, signature)
	binary.LittleEndian.PutUint16(b[4:], endianMark)
	binary.LittleEndian.PutUint16(b[6:], headerSize)
	binary.LittleEndian.PutUint16(b[8:], uint16(empfile.VersionXenoverse2))
	binary.LittleEndian.PutUint16(b[12:], 1)
	binary.LittleEndian.PutUint32(b[16:], headerSize)
	copy(b[headerSize:], "NewEmpty")
	return b
}

func TestDecodeNewEmpty(t *testing.T) {
	doc, warn, err := Decoder{}.DecodeBytes(newEmpty())
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if warn != nil {
		t.Errorf("unexpected warnings: %s", warn)
	}
	if doc.Version != empfile.VersionXenoverse2 {
		t.Errorf("unexpected version %s", doc.Version)
	}
	if len(doc.Nodes) != 1 {
		t.Fatalf("unexpected root count (expected 1, got %d)", len(doc.Nodes))
	}
	node := doc.Nodes[0]
	if node.Name != "NewEmpty" || node.Kind() != empfile.KindNull {
		t.Errorf("unexpected node %q (%s)", node.Name, node.Kind())
	}
	if len(node.Children) != 0 || len(doc.Samplers) != 0 {
		t.Errorf("unexpected children or samplers")
	}
}

func TestEncodeNewEmpty(t *testing.T) {
	doc := empfile.NewDocument(empfile.VersionXenoverse2)
	doc.Nodes = []*empfile.Node{empfile.NewNode("NewEmpty", nil)}
	b, err := Serialize(doc)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	if want := newEmpty(); !bytes.Equal(b, want) {
		t.Errorf("unexpected output (expected % 02X, got % 02X)", want, b)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		patch func(b []byte) []byte
		cause error
	}{
		{"signature", func(b []byte) []byte { b[0] = '!'; return b }, ErrInvalidSig},
		{"big endian", func(b []byte) []byte { b[4], b[5] = 0xFF, 0xFE; return b }, ErrBigEndian},
		{"truncated header", func(b []byte) []byte { return b[:20] }, ErrTruncated},
		{"truncated node", func(b []byte) []byte { return b[:headerSize+100] }, ErrTruncated},
		{"root offset", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[16:], 4096); return b }, ErrOutOfRange},
	}
	for _, test := range tests {
		_, _, err := Decoder{}.DecodeBytes(test.patch(newEmpty()))
		var ferr FormatError
		if !errors.As(err, &ferr) {
			t.Errorf("%s: expected FormatError, got %v", test.name, err)
			continue
		}
		if !errors.Is(err, test.cause) {
			t.Errorf("%s: unexpected cause (expected %v, got %v)", test.name, test.cause, ferr.Cause)
		}
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	b := newEmpty()
	b[headerSize+34] = 7
	_, _, err := Decoder{}.DecodeBytes(b)
	var kerr UnknownKindError
	if !errors.As(err, &kerr) || kerr != 7 {
		t.Fatalf("expected UnknownKindError, got %v", err)
	}
	var ferr FormatError
	if !errors.As(err, &ferr) || ferr.Offset != headerSize+34 {
		t.Errorf("unexpected offset of error %v", err)
	}
}

func TestDecodeUnknownVariant(t *testing.T) {
	b := newEmpty()
	b[headerSize+34] = kindEmitter
	b[headerSize+35] = 9
	_, _, err := Decoder{}.DecodeBytes(b)
	var verr UnknownVariantError
	if !errors.As(err, &verr) || verr.Kind != empfile.KindEmitter || verr.Variant != 9 {
		t.Fatalf("expected UnknownVariantError, got %v", err)
	}
}

func TestDecodeWarnings(t *testing.T) {
	b := newEmpty()
	binary.LittleEndian.PutUint16(b[6:], 48)
	b[10] = 0xAA
	b[headerSize+112] = 0xAA
	doc, warn, err := Decoder{}.DecodeBytes(b)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	errs, ok := warn.(errors.Errors)
	if !ok || len(errs) != 2 {
		t.Fatalf("unexpected warnings %v", warn)
	}
	var rerr ReserveError
	if !errors.As(errs[1], &rerr) || rerr.Offset != 10 {
		t.Errorf("unexpected reserve warning %v", errs[1])
	}
	if doc.Nodes[0].Reserved[0] != 0xAA {
		t.Errorf("reserved bytes not retained")
	}
	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	if out[headerSize+112] != 0xAA {
		t.Errorf("reserved bytes not written")
	}
}

func TestRootCountMismatch(t *testing.T) {
	b := newEmpty()
	binary.LittleEndian.PutUint16(b[12:], 2)
	if _, _, err := (Decoder{}).DecodeBytes(b); err == nil {
		t.Errorf("expected error for mismatched root count")
	}
}

////////////////////////////////////////////////////////////////

// testDocument returns a document that exercises every record type.
func testDocument(version empfile.Version) *empfile.Document {
	doc := empfile.NewDocument(version)

	static := empfile.NewTextureSampler(0)
	static.Scroll = &empfile.StaticScroll{Key: empfile.ScrollKeyframe{ScrollU: 0.25, ScaleU: 1, ScaleV: 2}}
	speed := empfile.NewTextureSampler(1)
	speed.RepeatU = empfile.RepeatMirror
	speed.Scroll = &empfile.ConstantScroll{SpeedU: 0.5, SpeedV: -0.5}
	sheet := empfile.NewTextureSampler(2)
	sheet.Scroll = &empfile.SpriteSheetScroll{Keyframes: []empfile.ScrollKeyframe{
		{Time: 0, ScaleU: 0.5, ScaleV: 0.5},
		{Time: 4, ScrollU: 0.5, ScaleU: 0.5, ScaleV: 0.5},
		{Time: 8, ScrollV: 0.5, ScaleU: 0.5, ScaleV: 0.5},
	}}
	if version == empfile.VersionSDBH {
		for i := range sheet.Scroll.(*empfile.SpriteSheetScroll).Keyframes {
			sheet.Scroll.(*empfile.SpriteSheetScroll).Keyframes[i].Extra = [2]float32{1, float32(i)}
		}
		static.Scroll.(*empfile.StaticScroll).Key.Extra = [2]float32{3, 4}
	}
	doc.Samplers = []*empfile.TextureSampler{static, speed, sheet}

	cone := &empfile.ConeEmitter{}
	cone.Angle.Value = 45
	cone.Velocity.Value, cone.Velocity.Variance = 2, 0.5
	emitter := empfile.NewNode("Emitter", cone)
	emitter.Lifetime = 60
	emitter.Flags = empfile.FlagLoop
	emitter.Position.Y.Value = 1
	emitter.AnimatedParameters = []empfile.AnimatedParameter{{
		Parameter: empfile.ParamEmitter,
		Component: 1,
		Keyframes: []empfile.Keyframe{{Time: 0, Value: 1}, {Time: 30, Value: 3}, {Time: 59, Value: 0}},
	}}
	emitter.Modifiers = []*empfile.Modifier{
		{Type: empfile.ModifierAcceleration, AnimatedParameters: []empfile.AnimatedParameter{{
			Parameter: empfile.ParamAxis,
			Component: 1,
			Keyframes: []empfile.Keyframe{{Time: 0, Value: -9.8}},
		}}},
		{Type: empfile.ModifierDrag, Flags: 1},
	}

	plane := empfile.NewEmission(empfile.EmissionAutoOriented)
	plane.Texture.Samplers[0] = static
	plane.Texture.MaterialID = 12
	plane.Texture.Color1.R.Value = 0.5
	spark := empfile.NewNode("Spark", plane)
	spark.Lifetime = 20
	spark.AnimatedParameters = []empfile.AnimatedParameter{{
		Parameter:   empfile.ParamAlpha,
		Component:   3,
		Interpolate: true,
		Keyframes:   []empfile.Keyframe{{Time: 0, Value: 1}, {Time: 19, Value: 0}},
	}}
	emitter.AddChild(spark)

	extrude := empfile.NewEmission(empfile.EmissionConeExtrude)
	extrude.Texture.Samplers[1] = speed
	extrude.Data.(*empfile.ConeExtrude).Duration = 10
	extrude.Data.(*empfile.ConeExtrude).Points = []empfile.ExtrudePoint{
		{ScaleFactor: 1},
		{ScaleFactor: 0.5, OffsetFactor: 2},
	}
	emitter.AddChild(empfile.NewNode("Trail", extrude))

	draw := empfile.NewEmission(empfile.EmissionShapeDraw)
	draw.Texture.Samplers = [empfile.MaxSamplers]*empfile.TextureSampler{sheet, static}
	draw.Data.(*empfile.ShapeDraw).Points = []empfile.ShapePoint{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: -1, Y: 0}}
	draw.Data.(*empfile.ShapeDraw).Params = [2]float32{1, 2}

	mesh := empfile.NewEmission(empfile.EmissionMesh)
	mesh.Data.(*empfile.MeshEmission).Mesh = empfile.RawMesh(append([]byte(meshSignature), 1, 2, 3, 4, 5))

	group := empfile.NewNode("Group", nil)
	group.AddChild(empfile.NewNode("Draw", draw))
	group.AddChild(empfile.NewNode("Mesh", mesh))

	doc.Nodes = []*empfile.Node{emitter, group}
	return doc
}

func TestTreeShape(t *testing.T) {
	doc := empfile.NewDocument(empfile.VersionXenoverse2)
	a := empfile.NewNode("A", nil)
	a.AddChild(empfile.NewNode("A1", nil))
	doc.Nodes = []*empfile.Node{a, empfile.NewNode("B", nil)}

	b, err := Serialize(doc)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	out, err := Parse(b)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if len(out.Nodes) != 2 {
		t.Fatalf("unexpected root count (expected 2, got %d)", len(out.Nodes))
	}
	if n := out.Nodes[0]; n.Name != "A" || len(n.Children) != 1 || n.Children[0].Name != "A1" {
		t.Errorf("unexpected first root %q with %d children", n.Name, len(n.Children))
	}
	if n := out.Nodes[1]; n.Name != "B" || len(n.Children) != 0 {
		t.Errorf("unexpected second root %q with %d children", n.Name, len(n.Children))
	}
	for i := headerSize; i < len(b); i += nodeHeaderSize {
		if i%nodeAlignment != 0 {
			t.Errorf("node at %d is not aligned", i)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, version := range []empfile.Version{empfile.VersionXenoverse2, empfile.VersionSDBH} {
		b, err := Serialize(testDocument(version))
		if err != nil {
			t.Fatalf("%s: encode: %s", version, err)
		}
		doc, warn, err := Decoder{}.DecodeBytes(b)
		if err != nil {
			t.Fatalf("%s: decode: %s", version, err)
		}
		if warn != nil {
			t.Errorf("%s: unexpected warnings: %s", version, warn)
		}
		out, err := Serialize(doc)
		if err != nil {
			t.Fatalf("%s: re-encode: %s", version, err)
		}
		if !bytes.Equal(b, out) {
			t.Errorf("%s: re-encoded output differs", version)
		}
	}
}

func TestRoundTripContent(t *testing.T) {
	want := testDocument(empfile.VersionSDBH)
	b, err := Serialize(want)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	doc, err := Parse(b)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}

	if !reflect.DeepEqual(doc.Samplers, want.Samplers) {
		t.Errorf("samplers differ")
	}

	emitter := doc.Nodes[0]
	if emitter.Lifetime != 60 || !emitter.Flags.Has(empfile.FlagLoop) || emitter.Position.Y.Value != 1 {
		t.Errorf("unexpected emitter header")
	}
	cone, ok := emitter.Payload.(*empfile.ConeEmitter)
	if !ok || cone.Angle.Value != 45 || cone.Velocity.Variance != 0.5 {
		t.Errorf("unexpected emitter payload %+v", emitter.Payload)
	}
	if !reflect.DeepEqual(emitter.AnimatedParameters, want.Nodes[0].AnimatedParameters) {
		t.Errorf("unexpected parameters %v", emitter.AnimatedParameters)
	}
	if len(emitter.Modifiers) != 2 {
		t.Fatalf("unexpected modifier count %d", len(emitter.Modifiers))
	}
	if m := emitter.Modifiers[1]; m.Type != empfile.ModifierDrag || m.Flags != 1 || len(m.AnimatedParameters) != 0 {
		t.Errorf("unexpected modifier %+v", m)
	}
	if !reflect.DeepEqual(emitter.Modifiers[0].AnimatedParameters, want.Nodes[0].Modifiers[0].AnimatedParameters) {
		t.Errorf("unexpected modifier parameters %v", emitter.Modifiers[0].AnimatedParameters)
	}

	spark := emitter.Children[0].Emission()
	if spark.Texture.MaterialID != 12 || spark.Texture.Color1.R.Value != 0.5 {
		t.Errorf("unexpected texture")
	}
	if spark.Texture.Samplers[0] != doc.Samplers[0] || spark.Texture.Samplers[1] != nil {
		t.Errorf("unexpected plane slots")
	}

	trail := emitter.Children[1].Emission()
	if trail.Texture.Samplers[0] != nil || trail.Texture.Samplers[1] != doc.Samplers[1] {
		t.Errorf("unexpected extrude slots")
	}
	if !reflect.DeepEqual(trail.Data, want.Nodes[0].Children[1].Emission().Data) {
		t.Errorf("unexpected extrude data %+v", trail.Data)
	}

	draw := doc.Nodes[1].Children[0].Emission()
	if draw.Texture.Samplers[0] != doc.Samplers[2] || draw.Texture.Samplers[1] != doc.Samplers[0] {
		t.Errorf("unexpected shape draw slots")
	}
	if !reflect.DeepEqual(draw.Data, want.Nodes[1].Children[0].Emission().Data) {
		t.Errorf("unexpected shape draw data %+v", draw.Data)
	}

	mesh := doc.Nodes[1].Children[1].Emission().Data.(*empfile.MeshEmission)
	if !reflect.DeepEqual(mesh.Mesh, want.Nodes[1].Children[1].Emission().Data.(*empfile.MeshEmission).Mesh) {
		t.Errorf("unexpected mesh %v", mesh.Mesh)
	}
}

func TestSpriteSheetLayout(t *testing.T) {
	for _, version := range []empfile.Version{empfile.VersionXenoverse2, empfile.VersionSDBH} {
		doc := empfile.NewDocument(version)
		smp := empfile.NewTextureSampler(0)
		smp.Scroll = &empfile.SpriteSheetScroll{Keyframes: []empfile.ScrollKeyframe{
			{Time: 1, ScaleU: 1, ScaleV: 1, Extra: [2]float32{5, 6}},
			{Time: 2, ScaleU: 2, ScaleV: 2, Extra: [2]float32{7, 8}},
		}}
		doc.Samplers = []*empfile.TextureSampler{smp}
		b, err := Serialize(doc)
		if err != nil {
			t.Fatalf("%s: encode: %s", version, err)
		}
		l := layouts[version]
		// The header is followed directly by the table, then the list.
		if want := int(headerSize + l.SamplerSize + 2*l.KeySize); len(b) != want {
			t.Errorf("%s: unexpected size (expected %d, got %d)", version, want, len(b))
		}
		out, err := Parse(b)
		if err != nil {
			t.Fatalf("%s: decode: %s", version, err)
		}
		keys := out.Samplers[0].Scroll.(*empfile.SpriteSheetScroll).Keyframes
		if len(keys) != 2 || keys[1].Time != 2 || keys[1].ScaleU != 2 {
			t.Errorf("%s: unexpected keyframes %v", version, keys)
		}
		if l.Extra != (keys[1].Extra == [2]float32{7, 8}) {
			t.Errorf("%s: unexpected extra values %v", version, keys[1].Extra)
		}
	}
}

func TestTextureSlots(t *testing.T) {
	doc := empfile.NewDocument(empfile.VersionXenoverse2)
	smp := empfile.NewTextureSampler(0)
	doc.Samplers = []*empfile.TextureSampler{smp}
	e := empfile.NewEmission(empfile.EmissionDefault)
	e.Texture.Samplers[0] = smp
	doc.Nodes = []*empfile.Node{empfile.NewNode("Slot", e)}

	b, err := Serialize(doc)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	tex := headerSize + nodeHeaderSize + emissionSize
	if n := b[tex+8]; n != 1 {
		t.Errorf("unexpected sampler count (expected 1, got %d)", n)
	}
	if off := binary.LittleEndian.Uint32(b[tex+12:]); off != textureSize {
		t.Errorf("unexpected sampler list offset (expected %d, got %d)", textureSize, off)
	}

	out, err := Parse(b)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	slots := out.Nodes[0].Emission().Texture.Samplers
	if slots[0] != out.Samplers[0] || slots[1] != nil {
		t.Errorf("unexpected slots %v", slots)
	}

	e.Texture.Samplers[0] = nil
	b, err = Serialize(doc)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	if n, off := b[tex+8], binary.LittleEndian.Uint32(b[tex+12:]); n != 0 || off != 0 {
		t.Errorf("unexpected empty sampler list (count %d, offset %d)", n, off)
	}

	e.Texture.Samplers[0] = empfile.NewTextureSampler(1)
	if _, err := Serialize(doc); err == nil {
		t.Errorf("expected error for sampler outside of document")
	}
}

func TestUnsupportedVersion(t *testing.T) {
	doc := testDocument(empfile.Version(1234))
	_, err := Serialize(doc)
	var verr UnsupportedVersionError
	if !errors.As(err, &verr) || verr != 1234 {
		t.Errorf("expected UnsupportedVersionError, got %v", err)
	}

	// Documents of unknown versions without samplers are fine.
	doc.Samplers = nil
	doc.Walk(func(node, _ *empfile.Node, _ empfile.EmitterShape) bool {
		if e := node.Emission(); e != nil {
			e.Texture.Samplers = [empfile.MaxSamplers]*empfile.TextureSampler{}
		}
		return true
	})
	b, err := Serialize(doc)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	out, err := Parse(b)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if out.Version != 1234 {
		t.Errorf("unexpected version %d", out.Version)
	}

	b, err = Serialize(testDocument(empfile.VersionXenoverse2))
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	binary.LittleEndian.PutUint16(b[8:], 1234)
	if _, err := Parse(b); !errors.As(err, &verr) {
		t.Errorf("expected UnsupportedVersionError, got %v", err)
	}
}

// chainFile returns a file of count Null nodes, where every node but the last
// refers to the next one as both its next sibling and its first child.
func chainFile(count int) []byte {
	b := newEmpty()
	b = append(b, make([]byte, (count-1)*nodeHeaderSize)...)
	for i := 0; i < count-1; i++ {
		off := headerSize + i*nodeHeaderSize
		binary.LittleEndian.PutUint32(b[off+nodeNextField:], nodeHeaderSize)
		binary.LittleEndian.PutUint32(b[off+nodeChildField:], nodeHeaderSize)
	}
	return b
}

func TestDecodeSharedNodes(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		_, err := Parse(chainFile(40))
		done <- err
	}()
	select {
	case err := <-done:
		var ferr FormatError
		if !errors.As(err, &ferr) || !errors.Is(err, ErrSharedRecord) {
			t.Fatalf("expected shared record error, got %v", err)
		}
		if ferr.Offset != headerSize+39*nodeHeaderSize {
			t.Errorf("unexpected offset %d", ferr.Offset)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("decoding did not finish")
	}

	// A chain used only as children is a plain tree.
	b := chainFile(3)
	for i := 0; i < 2; i++ {
		binary.LittleEndian.PutUint32(b[headerSize+i*nodeHeaderSize+nodeNextField:], 0)
	}
	doc, err := Parse(b)
	if err != nil {
		t.Fatalf("nested chain: %s", err)
	}
	if len(doc.Nodes) != 1 || len(doc.Nodes[0].Children) != 1 || len(doc.Nodes[0].Children[0].Children) != 1 {
		t.Errorf("unexpected tree for nested chain")
	}
}

func TestDecodeSharedParameters(t *testing.T) {
	doc := empfile.NewDocument(empfile.VersionXenoverse2)
	for _, name := range []string{"A", "B"} {
		node := empfile.NewNode(name, nil)
		node.AnimatedParameters = []empfile.AnimatedParameter{{
			Parameter: 12,
			Component: 1,
			Keyframes: []empfile.Keyframe{{Time: 0, Value: 1}, {Time: 4, Value: 2}},
		}}
		doc.Nodes = append(doc.Nodes, node)
	}
	b, err := Serialize(doc)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	s, err := Decoder{}.decode(b)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if len(s.arena.nodes) != 2 {
		t.Fatalf("unexpected node count %d", len(s.arena.nodes))
	}
	a, c := s.arena.nodes[0], s.arena.nodes[1]
	list := c.Offset + int64(c.Header.ParamOffset)
	binary.LittleEndian.PutUint32(b[a.Offset+nodeParamOffsetField:], uint32(list-a.Offset))

	_, err = Parse(b)
	var ferr FormatError
	if !errors.As(err, &ferr) || !errors.Is(err, ErrSharedRecord) {
		t.Fatalf("expected shared record error, got %v", err)
	}
	if ferr.Offset != list {
		t.Errorf("unexpected offset (expected %d, got %d)", list, ferr.Offset)
	}
}

func TestEncodeErrors(t *testing.T) {
	doc := empfile.NewDocument(empfile.VersionXenoverse2)
	doc.Nodes = []*empfile.Node{empfile.NewNode(strings.Repeat("x", empfile.NameSize+1), nil)}
	if _, err := Serialize(doc); err == nil {
		t.Errorf("expected error for long name")
	}

	draw := empfile.NewEmission(empfile.EmissionShapeDraw)
	draw.Data.(*empfile.ShapeDraw).Points = nil
	doc.Nodes = []*empfile.Node{empfile.NewNode("Draw", draw)}
	if _, err := Serialize(doc); err == nil {
		t.Errorf("expected error for shape draw without points")
	}

	plane := empfile.NewEmission(empfile.EmissionDefault)
	plane.Data = &empfile.Plane{Variant: empfile.EmissionShapeDraw}
	doc.Nodes = []*empfile.Node{empfile.NewNode("Plane", plane)}
	if _, err := Serialize(doc); err == nil {
		t.Errorf("expected error for plane with shape draw variant")
	}

	smp := empfile.NewTextureSampler(0)
	doc.Nodes = nil
	doc.Samplers = []*empfile.TextureSampler{smp, smp}
	if _, err := Serialize(doc); err == nil {
		t.Errorf("expected error for duplicate sampler")
	}

	node := empfile.NewNode("Dup", nil)
	node.Position.X.SetKeyframe(0, 1)
	node.AnimatedParameters = []empfile.AnimatedParameter{{Parameter: empfile.ParamPosition}}
	doc.Samplers = nil
	doc.Nodes = []*empfile.Node{node}
	_, err := Serialize(doc)
	var serr empfile.SchemaConsistencyError
	if !errors.As(err, &serr) {
		t.Errorf("expected SchemaConsistencyError, got %v", err)
	}

	if _, err := Serialize(nil); err == nil {
		t.Errorf("expected error for nil document")
	}
}

func TestEncodeInvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload empfile.Payload
	}{
		{"nil emission", (*empfile.Emission)(nil)},
		{"nil cone emitter", (*empfile.ConeEmitter)(nil)},
		{"nil square emitter", (*empfile.SquareEmitter)(nil)},
		{"nil plane", &empfile.Emission{Data: (*empfile.Plane)(nil)}},
		{"nil cone extrude", &empfile.Emission{Data: (*empfile.ConeExtrude)(nil)}},
		{"nil shape draw", &empfile.Emission{Data: (*empfile.ShapeDraw)(nil)}},
		{"plane with mesh variant", &empfile.Emission{Data: &empfile.Plane{Variant: empfile.EmissionMesh}}},
		{"plane with shape draw variant", &empfile.Emission{Data: &empfile.Plane{Variant: empfile.EmissionShapeDraw}}},
	}
	for _, test := range tests {
		doc := empfile.NewDocument(empfile.VersionXenoverse2)
		doc.Nodes = []*empfile.Node{empfile.NewNode("Bad", test.payload)}
		_, err := Serialize(doc)
		var ferr FormatError
		if !errors.As(err, &ferr) {
			t.Errorf("%s: expected FormatError, got %v", test.name, err)
			continue
		}
		if ferr.Offset != headerSize {
			t.Errorf("%s: unexpected offset %d", test.name, ferr.Offset)
		}
	}

	doc := empfile.NewDocument(empfile.VersionXenoverse2)
	doc.Nodes = []*empfile.Node{empfile.NewNode("Plane", empfile.NewEmission(empfile.EmissionVisibleOnSpeed))}
	if _, err := Serialize(doc); err != nil {
		t.Errorf("plane variant: unexpected error %v", err)
	}

	doc.Nodes = []*empfile.Node{empfile.NewNode("Parent", nil), nil}
	if _, err := Serialize(doc); err == nil {
		t.Errorf("expected error for nil node")
	}

	loop := empfile.NewNode("Loop", nil)
	loop.Children = []*empfile.Node{empfile.NewNode("Child", nil)}
	loop.Children[0].Children = []*empfile.Node{loop}
	doc.Nodes = []*empfile.Node{loop}
	if _, err := Serialize(doc); err == nil {
		t.Errorf("expected error for node that contains itself")
	}

	// The same node may appear in separate branches.
	shared := empfile.NewNode("Shared", nil)
	doc.Nodes = []*empfile.Node{shared, shared}
	if _, err := Serialize(doc); err != nil {
		t.Errorf("repeated node: unexpected error %v", err)
	}
}

func TestRecordNumbers(t *testing.T) {
	w := newWriter()
	h := paramHeader{Packed: 0x23, Loop: 1, Default: 0.5, Duration: 3, Count: 2, KeyOffset: 20, IndexOffset: 28}
	list := []uint16{1, 2, 3}
	if w.number(&h) || w.number(list) || w.number(uint32(7)) {
		t.Fatalf("write: %s", w.fw.Err())
	}
	b, err := w.finish()
	if err != nil {
		t.Fatalf("finish: %s", err)
	}
	if len(b) != paramHeaderSize+6+4 {
		t.Fatalf("unexpected length %d", len(b))
	}
	if b[0] != 0x23 || binary.LittleEndian.Uint16(b[paramHeaderSize+2:]) != 2 {
		t.Errorf("unexpected output % 02X", b)
	}

	r := reader{buf: b}
	var rh paramHeader
	if err := r.read(0, &rh); err != nil {
		t.Fatalf("read header: %s", err)
	}
	if rh != h {
		t.Errorf("unexpected header (expected %+v, got %+v)", h, rh)
	}
	rl := make([]uint16, 3)
	if err := r.read(paramHeaderSize, rl); err != nil {
		t.Fatalf("read list: %s", err)
	}
	if !reflect.DeepEqual(rl, list) {
		t.Errorf("unexpected list (expected %v, got %v)", list, rl)
	}
	var n uint32
	if err := r.read(paramHeaderSize+6, &n); err != nil || n != 7 {
		t.Errorf("unexpected number %d (%v)", n, err)
	}

	short := reader{buf: b[:paramHeaderSize-1]}
	err = short.read(0, &rh)
	var ferr FormatError
	if !errors.As(err, &ferr) || !errors.Is(err, ErrTruncated) {
		t.Errorf("expected truncated record, got %v", err)
	}
	if err := r.read(paramHeaderSize, make([]uint16, 8)); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected truncated list, got %v", err)
	}
	if err := r.read(0, &struct{ S string }{}); err == nil {
		t.Errorf("expected error for variable-size record")
	}

	bad := newWriter()
	if !bad.number([]string{"x"}) {
		t.Errorf("expected failure for variable-size list")
	}
	if _, err := bad.finish(); err == nil {
		t.Errorf("expected error from failed writer")
	}
}

////////////////////////////////////////////////////////////////

func TestIndexList(t *testing.T) {
	keys := []empfile.Keyframe{{Time: 2, Value: 0}, {Time: 5, Value: 1}, {Time: 9, Value: 2}}
	list := indexList(keys)
	if len(list) != 10 {
		t.Fatalf("unexpected length (expected 10, got %d)", len(list))
	}
	want := []uint16{0, 0, 0, 0, 0, 1, 1, 1, 1, 2}
	if !reflect.DeepEqual(list, want) {
		t.Errorf("unexpected list (expected %v, got %v)", want, list)
	}
	for f := 1; f < len(list); f++ {
		if list[f] < list[f-1] {
			t.Errorf("list decreases at frame %d", f)
		}
	}
	for f, i := range list {
		if int(i) >= len(keys) {
			t.Errorf("frame %d: index %d out of range", f, i)
		}
	}
	if l := indexList(nil); len(l) != 0 {
		t.Errorf("unexpected list for no keyframes %v", l)
	}
}

func TestParameterLayout(t *testing.T) {
	w := newWriter()
	params := []empfile.AnimatedParameter{{
		Parameter:   3,
		Component:   1,
		Interpolate: true,
		Loop:        true,
		Default:     0.5,
		Keyframes:   []empfile.Keyframe{{Time: 2, Value: 3}, {Time: 0, Value: 1}, {Time: 1, Value: 2}},
	}}
	if w.writeParameters(params) {
		t.Fatalf("write: %s", w.fw.Err())
	}
	b, err := w.finish()
	if err != nil {
		t.Fatalf("finish: %s", err)
	}

	// Header, 3 times padded to 8, 3 values, 3 indices padded to 8.
	if len(b) != paramHeaderSize+8+12+8 {
		t.Fatalf("unexpected size %d", len(b))
	}
	if b[0] != 0x80|1<<4|3 || b[1] != 1 {
		t.Errorf("unexpected packed bytes %02X %02X", b[0], b[1])
	}
	if d := binary.LittleEndian.Uint16(b[8:]); d != 3 {
		t.Errorf("unexpected duration (expected 3, got %d)", d)
	}
	if off := binary.LittleEndian.Uint32(b[12:]); off != paramHeaderSize {
		t.Errorf("unexpected key offset %d", off)
	}
	if off := binary.LittleEndian.Uint32(b[16:]); off != paramHeaderSize+8+12 {
		t.Errorf("unexpected index offset %d", off)
	}
	if !isZero(b[paramHeaderSize+6 : paramHeaderSize+8]) {
		t.Errorf("time padding not zeroed")
	}
	if t0 := binary.LittleEndian.Uint16(b[paramHeaderSize:]); t0 != 0 {
		t.Errorf("keyframes not sorted")
	}

	r := reader{buf: b}
	out, err := r.readParameters(0, 1)
	if err != nil {
		t.Fatalf("read: %s", err)
	}
	if !reflect.DeepEqual(out, params) {
		t.Errorf("unexpected parameters (expected %v, got %v)", params, out)
	}
}

func TestSingleKeyframeHasNoIndex(t *testing.T) {
	w := newWriter()
	params := []empfile.AnimatedParameter{{Keyframes: []empfile.Keyframe{{Time: 4, Value: 1}}}}
	if w.writeParameters(params) {
		t.Fatalf("write: %s", w.fw.Err())
	}
	b, err := w.finish()
	if err != nil {
		t.Fatalf("finish: %s", err)
	}
	if off := binary.LittleEndian.Uint32(b[16:]); off != 0 {
		t.Errorf("unexpected index offset %d", off)
	}
	if d := binary.LittleEndian.Uint16(b[8:]); d != 5 {
		t.Errorf("unexpected duration (expected 5, got %d)", d)
	}
}

////////////////////////////////////////////////////////////////

func TestDecompileModes(t *testing.T) {
	b, err := Serialize(testDocument(empfile.VersionXenoverse2))
	if err != nil {
		t.Fatalf("encode: %s", err)
	}

	raw, _, err := Decoder{Decompile: Raw}.DecodeBytes(b)
	if err != nil {
		t.Fatalf("raw: %s", err)
	}
	if len(raw.FindNode("Spark").AnimatedParameters) != 1 {
		t.Errorf("raw document is decompiled")
	}

	typed, _, err := Decoder{Decompile: Typed}.DecodeBytes(b)
	if err != nil {
		t.Fatalf("typed: %s", err)
	}
	spark := typed.FindNode("Spark")
	if len(spark.AnimatedParameters) != 0 {
		t.Errorf("typed: unexpected parameters %v", spark.AnimatedParameters)
	}
	alpha := spark.Emission().Texture.Color1.A
	if len(alpha.Keyframes) != 2 || !alpha.Interpolate {
		t.Errorf("typed: unexpected alpha track %+v", alpha)
	}
	emitter := typed.FindNode("Emitter")
	if v := emitter.Emitter().(*empfile.ConeEmitter).Velocity; len(v.Keyframes) != 3 {
		t.Errorf("typed: unexpected velocity keyframes %v", v.Keyframes)
	}
	if y := emitter.Modifiers[0].Axis.Y; len(y.Keyframes) != 1 || y.Keyframes[0].Value != -9.8 {
		t.Errorf("typed: unexpected modifier axis %v", y.Keyframes)
	}

	rb, err := Serialize(typed)
	if err != nil {
		t.Fatalf("typed: encode: %s", err)
	}
	if !bytes.Equal(b, rb) {
		t.Errorf("typed: re-encoded output differs")
	}

	full, _, err := Decoder{Decompile: Full}.DecodeBytes(b)
	if err != nil {
		t.Fatalf("full: %s", err)
	}
	v := full.FindNode("Emitter").Emitter().(*empfile.ConeEmitter).Velocity
	want := []empfile.Keyframe{{Time: 0, Value: 1}, {Time: 30, Value: 3}, {Time: 59, Value: 0}}
	if !reflect.DeepEqual(v.Keyframes, want) {
		t.Errorf("full: unexpected velocity keyframes %v", v.Keyframes)
	}
}

func TestTypedParameterLayout(t *testing.T) {
	node := empfile.NewNode("Layout", nil)
	node.AnimatedParameters = []empfile.AnimatedParameter{
		{Parameter: empfile.ParamPosition, Component: 1, Keyframes: []empfile.Keyframe{{Time: 0, Value: 1}, {Time: 8, Value: 2}}},
		{Parameter: empfile.ParamPosition, Component: 0, Interpolate: true, Default: 0.25},
		{Parameter: 12, Component: 3, Keyframes: []empfile.Keyframe{{Time: 2, Value: 5}}},
	}
	mod := empfile.NewModifier(empfile.ModifierVortex)
	mod.AnimatedParameters = []empfile.AnimatedParameter{
		{Parameter: empfile.ParamFactor, Component: 1, Keyframes: []empfile.Keyframe{{Time: 1, Value: 3}}},
		{Parameter: empfile.ParamFactor, Component: 0, Loop: true},
	}
	node.Modifiers = []*empfile.Modifier{mod}
	doc := empfile.NewDocument(empfile.VersionXenoverse2)
	doc.Nodes = []*empfile.Node{node}
	b, err := Serialize(doc)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}

	for _, mode := range []DecompileMode{Typed, Full} {
		dec, _, err := Decoder{Decompile: mode}.DecodeBytes(b)
		if err != nil {
			t.Fatalf("%s: decode: %s", mode, err)
		}
		n := dec.Nodes[0]
		if n.Position.X.Animated() || !n.Position.Y.Animated() {
			t.Errorf("%s: unexpected position tracks %+v", mode, n.Position)
		}
		if len(n.AnimatedParameters) != 1 {
			t.Errorf("%s: unexpected parameters %v", mode, n.AnimatedParameters)
		}
		rb, err := Serialize(dec)
		if err != nil {
			t.Fatalf("%s: encode: %s", mode, err)
		}
		if !bytes.Equal(b, rb) {
			t.Errorf("%s: re-encoded output differs", mode)
		}
	}
}

func TestDecompileModeText(t *testing.T) {
	for _, m := range []DecompileMode{Raw, Typed, Full} {
		text, err := m.MarshalText()
		if err != nil {
			t.Fatalf("%s: %s", m, err)
		}
		var out DecompileMode
		if err := out.UnmarshalText(text); err != nil || out != m {
			t.Errorf("%s: unexpected result %s (%v)", m, out, err)
		}
	}
	var m DecompileMode
	if err := m.UnmarshalText([]byte("compiled")); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}

func TestFingerprint(t *testing.T) {
	doc := testDocument(empfile.VersionXenoverse2)
	a, err := Fingerprint(doc)
	if err != nil {
		t.Fatalf("fingerprint: %s", err)
	}
	if err := doc.Decompile(false); err != nil {
		t.Fatalf("decompile: %s", err)
	}
	b, err := Fingerprint(doc)
	if err != nil {
		t.Fatalf("fingerprint: %s", err)
	}
	if a != b {
		t.Errorf("fingerprint changed after decompiling")
	}
	doc.Nodes[0].Name = "Other"
	if c, _ := Fingerprint(doc); c == a {
		t.Errorf("fingerprint unchanged after renaming")
	}
}

func TestMeshWithoutSignature(t *testing.T) {
	doc := empfile.NewDocument(empfile.VersionXenoverse2)
	mesh := empfile.NewEmission(empfile.EmissionMesh)
	mesh.Data.(*empfile.MeshEmission).Mesh = empfile.RawMesh("not a mesh")
	doc.Nodes = []*empfile.Node{empfile.NewNode("Mesh", mesh)}
	b, err := Serialize(doc)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	out, warn, err := Decoder{}.DecodeBytes(b)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if warn == nil {
		t.Errorf("expected warning for mesh without signature")
	}
	got := out.Nodes[0].Emission().Data.(*empfile.MeshEmission).Mesh
	if !reflect.DeepEqual(got, empfile.RawMesh("not a mesh")) {
		t.Errorf("unexpected mesh %v", got)
	}
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	if _, err := (Decoder{}).Dump(&buf, bytes.NewReader(newEmpty())); err != nil {
		t.Fatalf("dump: %s", err)
	}
	s := buf.String()
	for _, want := range []string{
		"Version: 37568 (Xenoverse2)",
		"Roots: (count:1) (offset:32)",
		`(len:8) "NewEmpty"`,
		"Kind: 0 (Null)",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("dump does not contain %q:\n%s", want, s)
		}
	}

	buf.Reset()
	b, err := Serialize(testDocument(empfile.VersionSDBH))
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	if _, err := (Decoder{}).Dump(&buf, bytes.NewReader(b)); err != nil {
		t.Fatalf("dump: %s", err)
	}
	if s := buf.String(); !strings.Contains(s, "Scroll: SpriteSheet (count:3)") {
		t.Errorf("dump does not contain sprite sheet:\n%s", s)
	}
}
