package emp

import (
	"github.com/emptools/empfile"
)

// readSamplers decodes the sampler table described by the file header.
func (s *decodeState) readSamplers(h *fileHeader) ([]*empfile.TextureSampler, error) {
	if h.SamplerCount < 0 {
		return nil, formatError(14, "negative sampler count %d", h.SamplerCount)
	}
	if h.SamplerCount == 0 {
		return nil, nil
	}
	l, err := layoutOf(empfile.Version(h.Version))
	if err != nil {
		return nil, FormatError{Offset: 8, Cause: err}
	}
	table, err := s.rel(0, h.SamplerOffset)
	if err != nil {
		return nil, err
	}

	samplers := make([]*empfile.TextureSampler, h.SamplerCount)
	for i := range samplers {
		if samplers[i], err = s.readSampler(table+int64(i)*l.SamplerSize, l); err != nil {
			return nil, err
		}
	}
	s.log.Debug("samplers", "offset", table, "count", len(samplers), "width", l.SamplerSize)
	return samplers, nil
}

func (s *decodeState) readSampler(pos int64, l layout) (*empfile.TextureSampler, error) {
	var rec samplerRecord
	if err := s.read(pos, &rec); err != nil {
		return nil, err
	}
	s.reserved(pos, []byte{rec.Reserved})
	s.reserved(pos+2, rec.Reserved2[:])

	smp := &empfile.TextureSampler{
		PixelIndex: rec.PixelIndex,
		FilterMin:  empfile.Filtering(rec.FilterMin),
		FilterMag:  empfile.Filtering(rec.FilterMag),
		RepeatU:    empfile.Repetition(rec.RepeatU),
		RepeatV:    empfile.Repetition(rec.RepeatV),
		SymmetryU:  rec.SymmetryU,
		SymmetryV:  rec.SymmetryV,
	}

	area := pos + samplerBaseSize
	raw, err := s.bytes(area, l.scrollAreaSize())
	if err != nil {
		return nil, err
	}
	switch empfile.ScrollType(rec.ScrollType) {
	case empfile.ScrollStatic:
		key, err := s.readScrollBody(area, l)
		if err != nil {
			return nil, err
		}
		smp.Scroll = &empfile.StaticScroll{Key: key}

	case empfile.ScrollConstantSpeed:
		var speed speedRecord
		if err := s.read(area, &speed); err != nil {
			return nil, err
		}
		s.reserved(area+8, raw[8:])
		smp.Scroll = &empfile.ConstantScroll{SpeedU: speed.SpeedU, SpeedV: speed.SpeedV}

	case empfile.ScrollSpriteSheet:
		var sheet spriteSheetRecord
		if err := s.read(area, &sheet); err != nil {
			return nil, err
		}
		s.reserved16(area, sheet.Reserved)
		s.reserved(area+8, raw[8:])
		scroll := &empfile.SpriteSheetScroll{}
		if sheet.Count > 0 {
			list, err := s.rel(pos, sheet.Offset)
			if err != nil {
				return nil, err
			}
			scroll.Keyframes = make([]empfile.ScrollKeyframe, sheet.Count)
			for i := range scroll.Keyframes {
				if scroll.Keyframes[i], err = s.readScrollKey(list+int64(i)*l.KeySize, l); err != nil {
					return nil, err
				}
			}
		}
		smp.Scroll = scroll

	default:
		return nil, FormatError{Offset: pos + 10, Cause: UnknownScrollError(rec.ScrollType)}
	}
	return smp, nil
}

// readScrollBody decodes a scroll keyframe without its time.
func (s *decodeState) readScrollBody(pos int64, l layout) (empfile.ScrollKeyframe, error) {
	var body scrollBody
	if err := s.read(pos, &body); err != nil {
		return empfile.ScrollKeyframe{}, err
	}
	key := empfile.ScrollKeyframe{
		ScrollU: body.ScrollU,
		ScrollV: body.ScrollV,
		ScaleU:  body.ScaleU,
		ScaleV:  body.ScaleV,
	}
	if l.Extra {
		if err := s.read(pos+16, &key.Extra); err != nil {
			return empfile.ScrollKeyframe{}, err
		}
	}
	return key, nil
}

// readScrollKey decodes an entry of a keyframe list.
func (s *decodeState) readScrollKey(pos int64, l layout) (empfile.ScrollKeyframe, error) {
	var time int32
	if err := s.read(pos, &time); err != nil {
		return empfile.ScrollKeyframe{}, err
	}
	key, err := s.readScrollBody(pos+4, l)
	key.Time = time
	return key, err
}

// resolveSlots sets the texture slots that were pending on the sampler
// table located at table.
func (s *decodeState) resolveSlots(table int64, width int64, samplers []*empfile.TextureSampler) error {
	for _, slot := range s.slots {
		rel := slot.Target - table
		if len(samplers) == 0 || rel < 0 || rel%width != 0 || rel/width >= int64(len(samplers)) {
			return formatError(slot.At, "texture slot %d does not refer to a sampler record", slot.Slot)
		}
		slot.Texture.Samplers[slot.Slot] = samplers[rel/width]
	}
	return nil
}

////////////////////////////////////////////////////////////////

// writeSamplers writes the sampler table of the document, followed by the
// keyframe lists of sprite sheets. The record of each sampler is marked with
// its label in s.samplers.
func (s *encodeState) writeSamplers(samplers []*empfile.TextureSampler, l layout, table label) (failed bool) {
	if s.align(samplerAlignment) {
		return true
	}
	s.mark(table)

	lists := make([]label, len(samplers))
	for i, smp := range samplers {
		pos := s.pos()
		s.mark(s.samplers[smp])
		scroll := smp.Scroll
		if scroll == nil {
			scroll = &empfile.StaticScroll{Key: empfile.IdentityScrollKeyframe}
		}
		rec := samplerRecord{
			PixelIndex: smp.PixelIndex,
			FilterMin:  uint8(smp.FilterMin),
			FilterMag:  uint8(smp.FilterMag),
			RepeatU:    uint8(smp.RepeatU),
			RepeatV:    uint8(smp.RepeatV),
			SymmetryU:  smp.SymmetryU,
			SymmetryV:  smp.SymmetryV,
			ScrollType: uint16(scroll.ScrollType()),
		}
		if s.number(&rec) {
			return true
		}

		switch scroll := scroll.(type) {
		case *empfile.StaticScroll:
			if s.writeScrollBody(scroll.Key, l) {
				return true
			}
		case *empfile.ConstantScroll:
			if s.number(&speedRecord{SpeedU: scroll.SpeedU, SpeedV: scroll.SpeedV}) {
				return true
			}
		case *empfile.SpriteSheetScroll:
			if len(scroll.Keyframes) > maxRecordCount {
				return s.fail(formatError(pos, "sprite sheet has too many keyframes"))
			}
			if len(scroll.Keyframes) > 0 {
				lists[i] = s.label()
				s.link(s.pos()+4, pos, lists[i])
			}
			if s.number(&spriteSheetRecord{Count: uint16(len(scroll.Keyframes))}) {
				return true
			}
		}

		if pad := pos + l.SamplerSize - s.pos(); pad > 0 {
			if s.bytes(make([]byte, pad)) {
				return true
			}
		}
	}

	for i, smp := range samplers {
		sheet, ok := smp.Scroll.(*empfile.SpriteSheetScroll)
		if !ok || len(sheet.Keyframes) == 0 {
			continue
		}
		s.mark(lists[i])
		for _, key := range sheet.Keyframes {
			if s.number(key.Time) || s.writeScrollBody(key, l) {
				return true
			}
		}
	}
	return false
}

func (s *encodeState) writeScrollBody(key empfile.ScrollKeyframe, l layout) (failed bool) {
	if s.number(&scrollBody{
		ScrollU: key.ScrollU,
		ScrollV: key.ScrollV,
		ScaleU:  key.ScaleU,
		ScaleV:  key.ScaleV,
	}) {
		return true
	}
	if l.Extra {
		return s.number(&key.Extra)
	}
	return false
}
