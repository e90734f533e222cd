package emp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"unicode"

	"github.com/emptools/empfile"
	"github.com/emptools/empfile/errors"
)

// Dump writes to w a readable representation of the records decoded from r.
// Animated parameters are shown in compiled form, and offsets are shown as
// they appear in the file.
func (d Decoder) Dump(w io.Writer, r io.Reader) (warn, err error) {
	if r == nil {
		return nil, errors.New("nil reader")
	}
	if w == nil {
		return nil, errors.New("nil writer")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	s, err := d.decode(data)
	warn = s.warns.Return()
	if err != nil {
		return warn, err
	}

	h := &s.header
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Version: %d (%s)", h.Version, empfile.Version(h.Version))
	fmt.Fprintf(bw, "\nRoots: (count:%d) (offset:%d)", h.RootCount, h.RootOffset)
	fmt.Fprintf(bw, "\nSamplers: (count:%d) (offset:%d)", h.SamplerCount, h.SamplerOffset)
	fmt.Fprint(bw, "\nNodes: {")
	s.dumpSiblings(bw, 1, s.root)
	fmt.Fprint(bw, "\n}")
	fmt.Fprint(bw, "\nSamplers: {")
	for i, smp := range s.samplers {
		dumpSampler(bw, 1, i, smp)
	}
	fmt.Fprint(bw, "\n}\n")

	return warn, bw.Flush()
}

func (s *decodeState) dumpSiblings(w *bufio.Writer, indent, i int) {
	for ; i != noLink; i = s.arena.nodes[i].Next {
		a := &s.arena.nodes[i]
		h := &a.Header
		dumpNewline(w, indent)
		fmt.Fprintf(w, "@%d: ", a.Offset)
		dumpString(w, indent, a.Node.Name)
		w.WriteString(" {")
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Kind: %d (%s)", h.Kind, a.Node.Kind())
		switch p := a.Node.Payload.(type) {
		case empfile.Emitter:
			dumpNewline(w, indent+1)
			fmt.Fprintf(w, "Shape: %d (%s)", h.Variant, p.Shape())
		case *empfile.Emission:
			dumpNewline(w, indent+1)
			fmt.Fprintf(w, "Emission: %d (%s)", h.Variant, p.EmissionKind())
			dumpTexture(w, indent+1, &p.Texture)
		}
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Flags: %02X %02X", h.Flags, h.Flags2)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Lifetime: %d (±%d)", h.Lifetime, h.LifetimeVariance)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "StartTime: %d (±%d)", h.StartTime, h.StartTimeVariance)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Burst: %d every %d (±%d), max %d", h.Burst, h.BurstFrequency, h.BurstFrequencyVariance, h.MaxInstances)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Position: %v (±%v)", h.Position, h.PositionVariance)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Rotation: %v (±%v)", h.Rotation, h.RotationVariance)
		if !isZero(h.Reserved[:]) {
			dumpNewline(w, indent+1)
			w.WriteString("Reserved: ")
			dumpBytes(w, indent+1, h.Reserved[:])
		}

		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Parameters: (count:%d) (offset:%d) {", h.ParamCount, h.ParamOffset)
		dumpParameters(w, indent+2, a.Node.AnimatedParameters)
		dumpNewline(w, indent+1)
		w.WriteByte('}')

		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Modifiers: (count:%d) (offset:%d) {", h.ModifierCount, h.ModifierOffset)
		for j, m := range a.Node.Modifiers {
			dumpNewline(w, indent+2)
			fmt.Fprintf(w, "#%d: %s (flags:%02X) {", j, m.Type, m.Flags)
			dumpParameters(w, indent+3, m.AnimatedParameters)
			dumpNewline(w, indent+2)
			w.WriteByte('}')
		}
		dumpNewline(w, indent+1)
		w.WriteByte('}')

		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Children: (offset:%d) {", h.FirstChild)
		s.dumpSiblings(w, indent+2, a.Child)
		dumpNewline(w, indent+1)
		w.WriteByte('}')

		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Next: (offset:%d)", h.NextSibling)
		dumpNewline(w, indent)
		w.WriteByte('}')
	}
}

func dumpTexture(w *bufio.Writer, indent int, t *empfile.Texture) {
	dumpNewline(w, indent)
	fmt.Fprintf(w, "Texture: (material:%d) (depth:%g) {", t.MaterialID, t.RenderDepth)
	for i, smp := range t.Samplers {
		dumpNewline(w, indent+1)
		if smp == nil {
			fmt.Fprintf(w, "Slot %d: <empty>", i)
			continue
		}
		fmt.Fprintf(w, "Slot %d: pixels %d", i, smp.PixelIndex)
	}
	dumpNewline(w, indent)
	w.WriteByte('}')
}

func dumpParameters(w *bufio.Writer, indent int, params []empfile.AnimatedParameter) {
	for i, p := range params {
		dumpNewline(w, indent)
		fmt.Fprintf(w, "#%d: (%d, %d) (interpolate:%t) (loop:%t) (default:%g) {", i, p.Parameter, p.Component, p.Interpolate, p.Loop, p.Default)
		for _, k := range p.Keyframes {
			dumpNewline(w, indent+1)
			fmt.Fprintf(w, "%d: %g", k.Time, k.Value)
		}
		dumpNewline(w, indent)
		w.WriteByte('}')
	}
}

func dumpSampler(w *bufio.Writer, indent, i int, smp *empfile.TextureSampler) {
	dumpNewline(w, indent)
	fmt.Fprintf(w, "#%d: {", i)
	dumpNewline(w, indent+1)
	fmt.Fprintf(w, "PixelIndex: %d", smp.PixelIndex)
	dumpNewline(w, indent+1)
	fmt.Fprintf(w, "Filter: %d %d", smp.FilterMin, smp.FilterMag)
	dumpNewline(w, indent+1)
	fmt.Fprintf(w, "Repeat: %d %d", smp.RepeatU, smp.RepeatV)
	dumpNewline(w, indent+1)
	fmt.Fprintf(w, "Symmetry: %d %d", smp.SymmetryU, smp.SymmetryV)
	dumpNewline(w, indent+1)
	fmt.Fprintf(w, "Scroll: %s", smp.ScrollType())
	switch scroll := smp.Scroll.(type) {
	case *empfile.StaticScroll:
		w.WriteByte(' ')
		dumpScrollKey(w, scroll.Key)
	case *empfile.ConstantScroll:
		fmt.Fprintf(w, " (%g, %g)", scroll.SpeedU, scroll.SpeedV)
	case *empfile.SpriteSheetScroll:
		fmt.Fprintf(w, " (count:%d) {", len(scroll.Keyframes))
		for _, k := range scroll.Keyframes {
			dumpNewline(w, indent+2)
			fmt.Fprintf(w, "%d: ", k.Time)
			dumpScrollKey(w, k)
		}
		dumpNewline(w, indent+1)
		w.WriteByte('}')
	}
	dumpNewline(w, indent)
	w.WriteByte('}')
}

func dumpScrollKey(w *bufio.Writer, k empfile.ScrollKeyframe) {
	fmt.Fprintf(w, "scroll(%g, %g) scale(%g, %g)", k.ScrollU, k.ScrollV, k.ScaleU, k.ScaleV)
	if k.Extra != [2]float32{} {
		fmt.Fprintf(w, " extra(%g, %g)", k.Extra[0], k.Extra[1])
	}
}

func dumpNewline(w *bufio.Writer, indent int) {
	w.WriteByte('\n')
	for i := 0; i < indent; i++ {
		w.WriteByte('\t')
	}
}

func dumpString(w *bufio.Writer, indent int, s string) {
	for _, r := range s {
		if !unicode.IsGraphic(r) {
			dumpBytes(w, indent, []byte(s))
			return
		}
	}
	fmt.Fprintf(w, "(len:%d) ", len(s))
	w.WriteString(strconv.Quote(s))
}

func dumpBytes(w *bufio.Writer, indent int, b []byte) {
	fmt.Fprintf(w, "(len:%d)", len(b))
	const width = 16
	for j := 0; j < len(b); j += width {
		dumpNewline(w, indent+1)
		w.WriteString("| ")
		n := len(b)
		if j+width < n {
			n = j + width
		}
		for i := j; i < j+width; i++ {
			if i < n {
				fmt.Fprintf(w, "%02x", b[i])
			} else {
				w.WriteString("  ")
			}
			if (i+1)%8 == 0 && i+1 < j+width {
				w.WriteString("  ")
			} else {
				w.WriteByte(' ')
			}
		}
		w.WriteByte('|')
		for i := j; i < n; i++ {
			if 32 <= b[i] && b[i] <= 126 {
				w.WriteByte(b[i])
			} else {
				w.WriteByte('.')
			}
		}
		w.WriteByte('|')
	}
}
