package emp

import (
	"bytes"
	"fmt"

	"github.com/emptools/empfile"
	"github.com/emptools/empfile/errors"
)

func vectorAxes(v *empfile.Vector3Track) [3]*empfile.Track {
	return [3]*empfile.Track{&v.X, &v.Y, &v.Z}
}

func colorChannels(c *empfile.Color) [4]*empfile.Track {
	return [4]*empfile.Track{&c.R, &c.G, &c.B, &c.A}
}

// pendingSlot is a texture slot that refers to a sampler record, which is
// resolved once the sampler table has been decoded.
type pendingSlot struct {
	Texture *empfile.Texture
	Slot    int
	// At is the position of the pointer.
	At int64
	// Target is the absolute position of the sampler record.
	Target int64
}

////////////////////////////////////////////////////////////////

// parseNode decodes the node record at off and adds it to the arena without
// links, returning its index.
func (s *decodeState) parseNode(off int64, owner empfile.EmitterShape) (int, error) {
	if err := s.claim(off); err != nil {
		return noLink, err
	}
	var h nodeHeader
	if err := s.read(off, &h); err != nil {
		return noLink, err
	}

	node := &empfile.Node{
		Name:                   h.name(),
		Flags:                  empfile.NodeFlags(h.Flags),
		Flags2:                 empfile.NodeFlags2(h.Flags2),
		Lifetime:               h.Lifetime,
		LifetimeVariance:       h.LifetimeVariance,
		StartTime:              h.StartTime,
		StartTimeVariance:      h.StartTimeVariance,
		MaxInstances:           h.MaxInstances,
		Burst:                  h.Burst,
		BurstFrequency:         h.BurstFrequency,
		BurstFrequencyVariance: h.BurstFrequencyVariance,
		Reserved:               h.Reserved,
	}
	for i, t := range vectorAxes(&node.Position) {
		t.Value, t.Variance = h.Position[i], h.PositionVariance[i]
	}
	for i, t := range vectorAxes(&node.Rotation) {
		t.Value, t.Variance = h.Rotation[i], h.RotationVariance[i]
	}

	var err error
	switch h.Kind {
	case kindNull:
		if h.Variant != 0 {
			s.reserved(off+35, []byte{h.Variant})
		}
	case kindEmitter:
		node.Payload, err = s.readEmitter(off, h.Variant)
	case kindEmission:
		node.Payload, err = s.readEmission(off, h.Variant)
	default:
		err = FormatError{Offset: off + 34, Cause: UnknownKindError(h.Kind)}
	}
	if err != nil {
		return noLink, err
	}

	if h.ParamCount > 0 {
		pos, err := s.rel(off, h.ParamOffset)
		if err != nil {
			return noLink, err
		}
		if node.AnimatedParameters, err = s.readParameters(pos, int(h.ParamCount)); err != nil {
			return noLink, err
		}
	}

	if h.ModifierCount > 0 {
		pos, err := s.rel(off, h.ModifierOffset)
		if err != nil {
			return noLink, err
		}
		if node.Modifiers, err = s.readModifiers(pos, int(h.ModifierCount)); err != nil {
			return noLink, err
		}
	}

	s.log.Debug("node",
		"offset", off,
		"name", node.Name,
		"kind", node.Kind(),
		"parameters", h.ParamCount,
		"modifiers", h.ModifierCount,
	)

	return s.arena.add(arenaNode{Node: node, Owner: owner, Offset: off, Header: h}), nil
}

func (s *decodeState) readEmitter(off int64, variant uint8) (empfile.Emitter, error) {
	pos := off + nodeHeaderSize
	switch empfile.EmitterShape(variant) {
	case empfile.ShapeCone:
		var rec coneRecord
		if err := s.read(pos, &rec); err != nil {
			return nil, err
		}
		e := &empfile.ConeEmitter{}
		rec.Position.load(&e.Position)
		rec.Velocity.load(&e.Velocity)
		rec.Angle.load(&e.Angle)
		return e, nil
	case empfile.ShapeSphere:
		var rec sphereRecord
		if err := s.read(pos, &rec); err != nil {
			return nil, err
		}
		e := &empfile.SphereEmitter{}
		rec.Size.load(&e.Size)
		rec.Velocity.load(&e.Velocity)
		return e, nil
	case empfile.ShapeCircle:
		var rec circleRecord
		if err := s.read(pos, &rec); err != nil {
			return nil, err
		}
		e := &empfile.CircleEmitter{}
		rec.Size.load(&e.Size)
		rec.Position.load(&e.Position)
		rec.Velocity.load(&e.Velocity)
		rec.Angle.load(&e.Angle)
		return e, nil
	case empfile.ShapeSquare:
		var rec squareRecord
		if err := s.read(pos, &rec); err != nil {
			return nil, err
		}
		e := &empfile.SquareEmitter{}
		rec.Position.load(&e.Position)
		rec.Velocity.load(&e.Velocity)
		rec.Angle.load(&e.Angle)
		rec.Size.load(&e.Size)
		rec.Size2.load(&e.Size2)
		return e, nil
	}
	return nil, FormatError{Offset: off + 35, Cause: UnknownVariantError{Kind: empfile.KindEmitter, Variant: variant}}
}

func (s *decodeState) readEmission(off int64, variant uint8) (*empfile.Emission, error) {
	kind := empfile.EmissionKind(variant)
	if kind > empfile.EmissionShapeDraw {
		return nil, FormatError{Offset: off + 35, Cause: UnknownVariantError{Kind: empfile.KindEmission, Variant: variant}}
	}

	pos := off + nodeHeaderSize
	var rec emissionRecord
	if err := s.read(pos, &rec); err != nil {
		return nil, err
	}
	s.reserved(pos+1, rec.Reserved[:])
	e := &empfile.Emission{
		Billboard:             empfile.BillboardType(rec.Billboard),
		StartRotation:         rec.StartRotation,
		StartRotationVariance: rec.StartRotationVariance,
		RotationAxis:          rec.RotationAxis,
	}
	rec.ActiveRotation.load(&e.ActiveRotation)

	if err := s.readTexture(off, pos+emissionSize, &e.Texture); err != nil {
		return nil, err
	}

	vpos := pos + emissionSize + textureSize
	switch kind {
	case empfile.EmissionConeExtrude:
		var rec coneExtrudeRecord
		if err := s.read(vpos, &rec); err != nil {
			return nil, err
		}
		s.reserved16(vpos+6, rec.Reserved)
		s.reserved16(vpos+10, rec.Reserved2)
		data := &empfile.ConeExtrude{
			Duration:         rec.Duration,
			DurationVariance: rec.DurationVariance,
			StepDelay:        rec.StepDelay,
		}
		if rec.PointCount > 0 {
			ppos, err := s.rel(off, rec.PointOffset)
			if err != nil {
				return nil, err
			}
			if err := s.claim(ppos); err != nil {
				return nil, err
			}
			data.Points = make([]empfile.ExtrudePoint, rec.PointCount)
			if err := s.read(ppos, data.Points); err != nil {
				return nil, err
			}
		}
		e.Data = data

	case empfile.EmissionMesh:
		var rec meshRecord
		if err := s.read(vpos, &rec); err != nil {
			return nil, err
		}
		s.reserved32(vpos, rec.Reserved)
		s.reserved32(vpos+12, rec.Reserved2)
		data := &empfile.MeshEmission{}
		if rec.MeshSize > 0 {
			mpos, err := s.rel(off, rec.MeshOffset)
			if err != nil {
				return nil, err
			}
			blob, err := s.bytes(mpos, int64(rec.MeshSize))
			if err != nil {
				return nil, err
			}
			if data.Mesh, err = s.decodeMesh(mpos, blob); err != nil {
				return nil, err
			}
		}
		e.Data = data

	case empfile.EmissionShapeDraw:
		var rec shapeDrawRecord
		if err := s.read(vpos, &rec); err != nil {
			return nil, err
		}
		s.reserved16(vpos, rec.Reserved)
		if rec.PointCount == 0 {
			return nil, formatError(vpos+2, "shape draw has no points")
		}
		ppos, err := s.rel(off, rec.PointOffset)
		if err != nil {
			return nil, err
		}
		if err := s.claim(ppos); err != nil {
			return nil, err
		}
		data := &empfile.ShapeDraw{
			Points: make([]empfile.ShapePoint, rec.PointCount),
			Params: rec.Params,
		}
		if err := s.read(ppos, data.Points); err != nil {
			return nil, err
		}
		e.Data = data

	default:
		e.Data = &empfile.Plane{Variant: kind}
	}
	return e, nil
}

// readTexture decodes the texture record at pos of the node at off.
func (s *decodeState) readTexture(off, pos int64, t *empfile.Texture) error {
	var rec textureRecord
	if err := s.read(pos, &rec); err != nil {
		return err
	}
	s.reserved16(pos+2, rec.Reserved)
	s.reserved(pos+9, rec.Reserved2[:])
	s.reserved(pos+104, rec.Reserved3[:])

	t.MaterialID = rec.MaterialID
	t.RenderDepth = rec.RenderDepth
	for i, c := range colorChannels(&t.Color1) {
		c.Value, c.Variance = rec.Color1[i], rec.Color1Variance[i]
	}
	for i, c := range colorChannels(&t.Color2) {
		c.Value, c.Variance = rec.Color2[i], rec.Color2Variance[i]
	}
	rec.ScaleBase.load(&t.ScaleBase)
	rec.ScaleX.load(&t.ScaleX)
	rec.ScaleY.load(&t.ScaleY)

	if rec.SamplerCount == 0 {
		return nil
	}
	if rec.SamplerCount > empfile.MaxSamplers {
		return formatError(pos+8, "texture has %d samplers, exceeding %d", rec.SamplerCount, empfile.MaxSamplers)
	}
	list, err := s.rel(pos, rec.SamplerListOffset)
	if err != nil {
		return err
	}
	pointers := make([]uint32, rec.SamplerCount)
	if err := s.read(list, pointers); err != nil {
		return err
	}
	for i, p := range pointers {
		if p == 0 {
			continue
		}
		s.slots = append(s.slots, pendingSlot{
			Texture: t,
			Slot:    i,
			At:      list + int64(i)*4,
			Target:  off + int64(p),
		})
	}
	return nil
}

// decodeMesh converts an embedded mesh blob. Blobs without the mesh
// signature are kept as raw bytes.
func (s *decodeState) decodeMesh(pos int64, blob []byte) (empfile.Mesh, error) {
	blob = append([]byte(nil), blob...)
	if !bytes.HasPrefix(blob, []byte(meshSignature)) {
		s.warns = append(s.warns, formatError(pos, "mesh blob has no %s signature", meshSignature))
		return empfile.RawMesh(blob), nil
	}
	mesh, err := s.meshes.DecodeMesh(blob)
	if err != nil {
		return nil, FormatError{Offset: pos, Cause: err}
	}
	return mesh, nil
}

func (s *decodeState) readModifiers(off int64, count int) ([]*empfile.Modifier, error) {
	if err := s.claim(off); err != nil {
		return nil, err
	}
	mods := make([]*empfile.Modifier, count)
	for i := range mods {
		pos := off + int64(i)*modifierSize
		var rec modifierRecord
		if err := s.read(pos, &rec); err != nil {
			return nil, err
		}
		s.reserved16(pos+2, rec.Reserved)
		s.reserved16(pos+6, rec.Reserved2)
		s.reserved32(pos+12, rec.Reserved3)

		m := empfile.NewModifier(empfile.ModifierType(rec.Type))
		m.Flags = rec.Flags
		if rec.ParamCount > 0 {
			ppos, err := s.rel(pos, rec.ParamOffset)
			if err != nil {
				return nil, err
			}
			if m.AnimatedParameters, err = s.readParameters(ppos, int(rec.ParamCount)); err != nil {
				return nil, err
			}
		}
		mods[i] = m
	}
	return mods, nil
}

////////////////////////////////////////////////////////////////

// checkPayload returns an error if a payload cannot be written: a nil pointer
// stored in a non-nil interface, or a plane with a variant of another kind.
func checkPayload(p empfile.Payload) error {
	switch p := p.(type) {
	case nil:
		return nil
	case *empfile.ConeEmitter:
		if p == nil {
			return errors.New("cone emitter is nil")
		}
	case *empfile.SphereEmitter:
		if p == nil {
			return errors.New("sphere emitter is nil")
		}
	case *empfile.CircleEmitter:
		if p == nil {
			return errors.New("circle emitter is nil")
		}
	case *empfile.SquareEmitter:
		if p == nil {
			return errors.New("square emitter is nil")
		}
	case *empfile.Emission:
		if p == nil {
			return errors.New("emission is nil")
		}
		return checkEmissionData(p.Data)
	}
	return nil
}

func checkEmissionData(d empfile.EmissionData) error {
	switch d := d.(type) {
	case *empfile.Plane:
		if d == nil {
			return errors.New("plane is nil")
		}
		if !d.Variant.IsPlane() {
			return fmt.Errorf("plane has variant %s", d.Variant)
		}
	case *empfile.ConeExtrude:
		if d == nil {
			return errors.New("cone extrude is nil")
		}
	case *empfile.MeshEmission:
		if d == nil {
			return errors.New("mesh emission is nil")
		}
	case *empfile.ShapeDraw:
		if d == nil {
			return errors.New("shape draw is nil")
		}
	}
	return nil
}

// writeNode writes the record of an arena node. Links to siblings, children
// and samplers are recorded as patches.
func (s *encodeState) writeNode(a *arenaNode) (failed bool) {
	node := a.Node
	if s.align(nodeAlignment) {
		return true
	}
	start := s.pos()
	s.mark(a.Label)

	if err := empfile.ValidName(node.Name); err != nil {
		return s.fail(FormatError{Offset: start, Cause: err})
	}
	if err := checkPayload(node.Payload); err != nil {
		return s.fail(FormatError{Offset: start, Cause: fmt.Errorf("node %q: %w", node.Name, err)})
	}
	params, err := node.CompileParameters(a.Owner)
	if err != nil {
		return s.fail(FormatError{Offset: start, Cause: err})
	}
	modParams := make([][]empfile.AnimatedParameter, len(node.Modifiers))
	for i, m := range node.Modifiers {
		if modParams[i], err = m.CompileParameters(); err != nil {
			return s.fail(FormatError{Offset: start, Cause: err})
		}
		if len(modParams[i]) > maxRecordCount {
			return s.fail(formatError(start, "modifier %d has too many parameters", i))
		}
	}
	if len(params) > maxRecordCount || len(node.Modifiers) > maxRecordCount {
		return s.fail(formatError(start, "node %q has too many parameters or modifiers", node.Name))
	}

	h := nodeHeader{
		Flags:                  uint8(node.Flags),
		Flags2:                 uint8(node.Flags2),
		Lifetime:               node.Lifetime,
		LifetimeVariance:       node.LifetimeVariance,
		StartTime:              node.StartTime,
		StartTimeVariance:      node.StartTimeVariance,
		MaxInstances:           node.MaxInstances,
		Burst:                  node.Burst,
		BurstFrequency:         node.BurstFrequency,
		BurstFrequencyVariance: node.BurstFrequencyVariance,
		ParamCount:             uint16(len(params)),
		ModifierCount:          uint16(len(node.Modifiers)),
		Reserved:               node.Reserved,
	}
	copy(h.Name[:], node.Name)
	for i, t := range vectorAxes(&node.Position) {
		h.Position[i], h.PositionVariance[i] = t.Value, t.Variance
	}
	for i, t := range vectorAxes(&node.Rotation) {
		h.Rotation[i], h.RotationVariance[i] = t.Value, t.Variance
	}
	switch p := node.Payload.(type) {
	case nil:
		h.Kind = kindNull
	case empfile.Emitter:
		h.Kind = kindEmitter
		h.Variant = uint8(p.Shape())
	case *empfile.Emission:
		h.Kind = kindEmission
		h.Variant = uint8(p.EmissionKind())
	}

	paramLabel, modLabel := s.label(), s.label()
	if len(params) > 0 {
		s.link(start+nodeParamOffsetField, start, paramLabel)
	}
	if len(node.Modifiers) > 0 {
		s.link(start+nodeModifierOffsetField, start, modLabel)
	}
	if a.Next != noLink {
		s.link(start+nodeNextField, start, s.arena.nodes[a.Next].Label)
	}
	if a.Child != noLink {
		s.link(start+nodeChildField, start, s.arena.nodes[a.Child].Label)
	}
	if s.number(&h) {
		return true
	}

	switch p := node.Payload.(type) {
	case empfile.Emitter:
		if s.writeEmitter(p) {
			return true
		}
	case *empfile.Emission:
		if s.writeEmission(start, p) {
			return true
		}
	}

	if len(params) > 0 {
		if s.align(blockAlignment) {
			return true
		}
		s.mark(paramLabel)
		if s.writeParameters(params) {
			return true
		}
	}

	if len(node.Modifiers) > 0 {
		if s.align(blockAlignment) {
			return true
		}
		s.mark(modLabel)
		labels := make([]label, len(node.Modifiers))
		for i, m := range node.Modifiers {
			pos := s.pos()
			rec := modifierRecord{
				Type:       uint8(m.Type),
				Flags:      m.Flags,
				ParamCount: uint16(len(modParams[i])),
			}
			if len(modParams[i]) > 0 {
				labels[i] = s.label()
				s.link(pos+8, pos, labels[i])
			}
			if s.number(&rec) {
				return true
			}
		}
		for i, params := range modParams {
			if len(params) == 0 {
				continue
			}
			s.mark(labels[i])
			if s.writeParameters(params) {
				return true
			}
		}
	}

	s.log.Debug("node",
		"offset", start,
		"name", node.Name,
		"kind", node.Kind(),
		"parameters", len(params),
		"modifiers", len(node.Modifiers),
	)
	return false
}

func (s *encodeState) writeEmitter(e empfile.Emitter) (failed bool) {
	switch e := e.(type) {
	case *empfile.ConeEmitter:
		return s.number(&coneRecord{
			Position: pairOf(&e.Position),
			Velocity: pairOf(&e.Velocity),
			Angle:    pairOf(&e.Angle),
		})
	case *empfile.SphereEmitter:
		return s.number(&sphereRecord{
			Size:     pairOf(&e.Size),
			Velocity: pairOf(&e.Velocity),
		})
	case *empfile.CircleEmitter:
		return s.number(&circleRecord{
			Size:     pairOf(&e.Size),
			Position: pairOf(&e.Position),
			Velocity: pairOf(&e.Velocity),
			Angle:    pairOf(&e.Angle),
		})
	case *empfile.SquareEmitter:
		return s.number(&squareRecord{
			Position: pairOf(&e.Position),
			Velocity: pairOf(&e.Velocity),
			Angle:    pairOf(&e.Angle),
			Size:     pairOf(&e.Size),
			Size2:    pairOf(&e.Size2),
		})
	}
	return false
}

// writeEmission writes the emission payload of the node at start, followed
// by its sampler pointers and point list or mesh.
func (s *encodeState) writeEmission(start int64, e *empfile.Emission) (failed bool) {
	if s.number(&emissionRecord{
		Billboard:             uint8(e.Billboard),
		StartRotation:         e.StartRotation,
		StartRotationVariance: e.StartRotationVariance,
		ActiveRotation:        pairOf(&e.ActiveRotation),
		RotationAxis:          e.RotationAxis,
	}) {
		return true
	}

	kind := e.EmissionKind()
	t := &e.Texture
	count := t.SamplerCount()
	tex := textureRecord{
		MaterialID:   t.MaterialID,
		RenderDepth:  t.RenderDepth,
		SamplerCount: uint8(count),
		ScaleBase:    pairOf(&t.ScaleBase),
		ScaleX:       pairOf(&t.ScaleX),
		ScaleY:       pairOf(&t.ScaleY),
	}
	for i, c := range colorChannels(&t.Color1) {
		tex.Color1[i], tex.Color1Variance[i] = c.Value, c.Variance
	}
	for i, c := range colorChannels(&t.Color2) {
		tex.Color2[i], tex.Color2Variance[i] = c.Value, c.Variance
	}
	if count > 0 {
		tex.SamplerListOffset = textureSize
		if !kind.IsPlane() {
			tex.SamplerListOffset += variantSize
		}
	}
	if s.number(&tex) {
		return true
	}

	// The variant record refers to data that follows the sampler pointers.
	var data label
	var blob []byte
	vpos := s.pos()
	switch d := e.Data.(type) {
	case *empfile.ConeExtrude:
		if len(d.Points) > maxRecordCount {
			return s.fail(formatError(vpos, "cone extrude has too many points"))
		}
		if len(d.Points) > 0 {
			data = s.label()
			s.link(vpos+12, start, data)
		}
		if s.number(&coneExtrudeRecord{
			Duration:         d.Duration,
			DurationVariance: d.DurationVariance,
			StepDelay:        d.StepDelay,
			PointCount:       uint16(len(d.Points)),
		}) {
			return true
		}
	case *empfile.MeshEmission:
		var err error
		if blob, err = s.encodeMesh(d.Mesh); err != nil {
			return s.fail(FormatError{Offset: vpos, Cause: err})
		}
		if len(blob) > 0 {
			data = s.label()
			s.link(vpos+4, start, data)
		}
		if s.number(&meshRecord{MeshSize: uint32(len(blob))}) {
			return true
		}
	case *empfile.ShapeDraw:
		if len(d.Points) == 0 {
			return s.fail(formatError(vpos, "shape draw has no points"))
		}
		if len(d.Points) > maxRecordCount {
			return s.fail(formatError(vpos, "shape draw has too many points"))
		}
		data = s.label()
		s.link(vpos+4, start, data)
		if s.number(&shapeDrawRecord{
			PointCount: uint16(len(d.Points)),
			Params:     d.Params,
		}) {
			return true
		}
	}

	for i := 0; i < count; i++ {
		smp := t.Samplers[i]
		if smp == nil {
			if s.number(uint32(0)) {
				return true
			}
			continue
		}
		l, ok := s.samplers[smp]
		if !ok {
			return s.fail(formatError(s.pos(), "texture slot %d refers to a sampler outside of the document", i))
		}
		s.link(s.pos(), start, l)
		if s.number(uint32(0)) {
			return true
		}
	}

	switch d := e.Data.(type) {
	case *empfile.ConeExtrude:
		if len(d.Points) > 0 {
			s.mark(data)
			return s.number(d.Points)
		}
	case *empfile.MeshEmission:
		if len(blob) > 0 {
			if s.align(meshAlignment) {
				return true
			}
			s.mark(data)
			return s.bytes(blob)
		}
	case *empfile.ShapeDraw:
		s.mark(data)
		return s.number(d.Points)
	}
	return false
}

// encodeMesh converts a mesh into a blob. Raw meshes are written as-is.
func (s *encodeState) encodeMesh(mesh empfile.Mesh) ([]byte, error) {
	switch mesh := mesh.(type) {
	case nil:
		return nil, nil
	case empfile.RawMesh:
		return mesh, nil
	}
	return s.meshes.EncodeMesh(mesh)
}
