package emp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/anaminus/parse"
	"github.com/emptools/empfile/errors"
)

////////////////////////////////////////////////////////////////

// reader reads records at absolute offsets of an in-memory file.
type reader struct {
	buf   []byte
	warns errors.Errors

	// claimed holds the positions of records and lists already decoded.
	claimed map[int64]bool
}

// size returns the length of the file.
func (r *reader) size() int64 {
	return int64(len(r.buf))
}

// read decodes the fixed-size value v from the data at off. Primitive
// numbers are read by parse; records and slices are decoded in one piece.
func (r *reader) read(off int64, v interface{}) error {
	if off < 0 || off > r.size() {
		return FormatError{Offset: off, Cause: ErrOutOfRange}
	}
	fr := parse.NewBinaryReader(bytes.NewReader(r.buf[off:]))
	if parse.NumberSize(v) > 0 {
		fr.Number(v)
	} else {
		fr.Add(decodeRecord(r.buf[off:], v))
	}
	return decodeError(fr, off)
}

// decodeRecord decodes a pointer to a fixed-size struct or array, or a slice
// of such values, from the start of b.
func decodeRecord(b []byte, v interface{}) (n int64, err error) {
	size := binary.Size(v)
	if size < 0 {
		return 0, fmt.Errorf("invalid record type %T", v)
	}
	if size > len(b) {
		return int64(len(b)), io.ErrUnexpectedEOF
	}
	m, err := binary.Decode(b[:size], binary.LittleEndian, v)
	return int64(m), err
}

// bytes returns n bytes of data at off, without copying.
func (r *reader) bytes(off, n int64) ([]byte, error) {
	if off < 0 || off > r.size() {
		return nil, FormatError{Offset: off, Cause: ErrOutOfRange}
	}
	if n < 0 || n > r.size()-off {
		return nil, FormatError{Offset: r.size(), Cause: ErrTruncated}
	}
	return r.buf[off : off+n], nil
}

// rel returns the absolute position of an offset relative to base. An
// offset of 0 is not valid; callers check for absence first.
func (r *reader) rel(base int64, offset uint32) (int64, error) {
	pos := base + int64(offset)
	if offset == 0 || pos >= r.size() {
		return 0, FormatError{Offset: base, Cause: ErrOutOfRange}
	}
	return pos, nil
}

// claim marks the record or list at off as decoded. Each may be reached only
// once, so that the work of a decode is bounded by the size of the data.
func (r *reader) claim(off int64) error {
	if r.claimed[off] {
		return FormatError{Offset: off, Cause: ErrSharedRecord}
	}
	if r.claimed == nil {
		r.claimed = map[int64]bool{}
	}
	r.claimed[off] = true
	return nil
}

// reserved adds a warning if b, located at off, is not zeroed.
func (r *reader) reserved(off int64, b []byte) {
	if !isZero(b) {
		r.warns = append(r.warns, ReserveError{Offset: off, Bytes: append([]byte(nil), b...)})
	}
}

// reserved16 is like reserved, for a 16-bit field.
func (r *reader) reserved16(off int64, v uint16) {
	if v != 0 {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], v)
		r.reserved(off, b[:])
	}
}

// reserved32 is like reserved, for a 32-bit field.
func (r *reader) reserved32(off int64, v uint32) {
	if v != 0 {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		r.reserved(off, b[:])
	}
}

// decodeError converts the error state of fr, which began reading at base,
// into a FormatError.
func decodeError(fr *parse.BinaryReader, base int64) error {
	n, err := fr.End()
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = ErrTruncated
	}
	return FormatError{Offset: base + n, Cause: err}
}

////////////////////////////////////////////////////////////////

// label marks a position in the output that is not known until it is
// written.
type label int

// patch is a 32-bit offset field at At, to be set to the position of Target
// minus Base.
type patch struct {
	At     int64
	Base   int64
	Target label
}

// writer writes records to a growable buffer, and resolves offsets between
// them in a final pass.
type writer struct {
	buf     bytes.Buffer
	fw      *parse.BinaryWriter
	marks   []int64
	patches []patch
}

func newWriter() *writer {
	w := &writer{}
	w.fw = parse.NewBinaryWriter(&w.buf)
	return w
}

// pos returns the current position of the output.
func (w *writer) pos() int64 {
	return int64(w.buf.Len())
}

// number writes the fixed-size value v. Primitive numbers are written by
// parse; records and slices are encoded in one piece.
func (w *writer) number(v interface{}) (failed bool) {
	if parse.NumberSize(v) > 0 {
		return w.fw.Number(v)
	}
	if w.fw.Err() != nil {
		return true
	}
	size := binary.Size(v)
	if size < 0 {
		return w.fw.Add(0, fmt.Errorf("invalid record type %T", v))
	}
	return w.fw.Add(int64(size), binary.Write(&w.buf, binary.LittleEndian, v))
}

func (w *writer) bytes(b []byte) (failed bool) {
	return w.fw.Bytes(b)
}

// align pads the output with zeros to a multiple of n.
func (w *writer) align(n int64) (failed bool) {
	pad := alignUp(w.pos(), n) - w.pos()
	if pad == 0 {
		return w.fw.Err() != nil
	}
	return w.fw.Bytes(make([]byte, pad))
}

// fail sets the error state of the writer.
func (w *writer) fail(err error) (failed bool) {
	return w.fw.Add(0, err)
}

// label allocates an unmarked label.
func (w *writer) label() label {
	w.marks = append(w.marks, -1)
	return label(len(w.marks) - 1)
}

// mark binds l to the current position.
func (w *writer) mark(l label) {
	w.marks[l] = w.pos()
}

// link records that the 32-bit field at at refers to target, relative to
// base.
func (w *writer) link(at, base int64, target label) {
	w.patches = append(w.patches, patch{At: at, Base: base, Target: target})
}

// finish resolves all patches and returns the output.
func (w *writer) finish() ([]byte, error) {
	if _, err := w.fw.End(); err != nil {
		return nil, err
	}
	b := w.buf.Bytes()
	for _, p := range w.patches {
		target := w.marks[p.Target]
		if target < 0 {
			return nil, formatError(p.At, "unresolved offset")
		}
		if target <= p.Base {
			return nil, formatError(p.At, "offset does not advance")
		}
		binary.LittleEndian.PutUint32(b[p.At:], uint32(target-p.Base))
	}
	return b, nil
}
