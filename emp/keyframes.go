package emp

import (
	"sort"

	"github.com/emptools/empfile"
)

// readParameters decodes a group of count parameter headers located at off.
// The index lists of the parameters are not read.
func (r *reader) readParameters(off int64, count int) ([]empfile.AnimatedParameter, error) {
	if count == 0 {
		return nil, nil
	}
	if err := r.claim(off); err != nil {
		return nil, err
	}
	params := make([]empfile.AnimatedParameter, count)
	for i := range params {
		pos := off + int64(i)*paramHeaderSize
		var h paramHeader
		if err := r.read(pos, &h); err != nil {
			return nil, err
		}
		r.reserved16(pos+2, h.Reserved)

		p := &params[i]
		unpackParameter(h.Packed, p)
		p.Loop = h.Loop != 0
		p.Default = h.Default
		if h.Count == 0 {
			continue
		}
		keyPos, err := r.rel(pos, h.KeyOffset)
		if err != nil {
			return nil, err
		}
		if p.Keyframes, err = r.readKeyframes(keyPos, int(h.Count)); err != nil {
			return nil, err
		}
	}
	return params, nil
}

// readKeyframes decodes count times followed by count values.
func (r *reader) readKeyframes(off int64, count int) ([]empfile.Keyframe, error) {
	times := make([]uint16, count)
	if err := r.read(off, times); err != nil {
		return nil, err
	}
	values := make([]float32, count)
	if err := r.read(off+alignUp(int64(count)*2, blockAlignment), values); err != nil {
		return nil, err
	}
	keys := make([]empfile.Keyframe, count)
	for i := range keys {
		keys[i] = empfile.Keyframe{Time: times[i], Value: values[i]}
	}
	return keys, nil
}

// keyframeDuration returns the number of frames spanned by keys, which must
// be sorted.
func keyframeDuration(keys []empfile.Keyframe) int {
	if len(keys) == 0 {
		return 0
	}
	return int(keys[len(keys)-1].Time) + 1
}

// indexList returns the per-frame keyframe lookup of keys, which must be
// sorted. Each frame maps to the index of the keyframe that governs it. The
// first keyframe also governs every frame before it, and the last keyframe
// governs only its own frame.
func indexList(keys []empfile.Keyframe) []uint16 {
	duration := keyframeDuration(keys)
	list := make([]uint16, duration)
	for i, k := range keys {
		start := int(k.Time)
		if i == 0 {
			start = 0
		}
		end := duration
		if i+1 < len(keys) {
			end = int(keys[i+1].Time)
		}
		for f := start; f < end; f++ {
			list[f] = uint16(i)
		}
	}
	return list
}

// writeParameters writes a group of parameters: every header, followed by
// the keyframe block of each parameter in order. The keyframes of params
// are sorted in place.
func (w *writer) writeParameters(params []empfile.AnimatedParameter) (failed bool) {
	type pending struct {
		header     int64
		keys       label
		index      label
		hasIndex   bool
		parameters *empfile.AnimatedParameter
	}
	group := make([]pending, len(params))

	for i := range params {
		p := &params[i]
		sort.SliceStable(p.Keyframes, func(a, b int) bool {
			return p.Keyframes[a].Time < p.Keyframes[b].Time
		})
		duration := keyframeDuration(p.Keyframes)
		if duration > maxRecordCount || len(p.Keyframes) > maxRecordCount {
			return w.fail(formatError(w.pos(), "parameter (%d, %d): keyframes exceed %d frames", p.Parameter, p.Component, maxRecordCount))
		}

		g := &group[i]
		g.header = w.pos()
		g.parameters = p
		h := paramHeader{
			Packed:   packParameter(p),
			Default:  p.Default,
			Duration: uint16(duration),
			Count:    uint16(len(p.Keyframes)),
		}
		if p.Loop {
			h.Loop = 1
		}
		if len(p.Keyframes) > 0 {
			g.keys = w.label()
			w.link(g.header+12, g.header, g.keys)
		}
		if len(p.Keyframes) > 1 {
			g.hasIndex = true
			g.index = w.label()
			w.link(g.header+16, g.header, g.index)
		}
		if w.number(&h) {
			return true
		}
	}

	for _, g := range group {
		keys := g.parameters.Keyframes
		if len(keys) == 0 {
			continue
		}
		times := make([]uint16, len(keys))
		values := make([]float32, len(keys))
		for i, k := range keys {
			times[i] = k.Time
			values[i] = k.Value
		}
		w.mark(g.keys)
		if w.number(times) || w.align(blockAlignment) || w.number(values) {
			return true
		}
		if g.hasIndex {
			w.mark(g.index)
			if w.number(indexList(keys)) || w.align(blockAlignment) {
				return true
			}
		}
	}
	return false
}
