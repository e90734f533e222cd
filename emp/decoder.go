package emp

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/emptools/empfile"
	"github.com/emptools/empfile/errors"
)

// DecompileMode selects how far a decoded Document is decompiled.
type DecompileMode uint8

const (
	// Raw keeps every animated parameter in compiled form.
	Raw DecompileMode = iota
	// Typed moves animated parameters into the tracks of nodes and
	// modifiers. Keyframes are unchanged.
	Typed
	// Full is like Typed, and also clips keyframes to the Lifetime of each
	// node. This is lossy.
	Full
)

var modeStrings = [...]string{
	Raw:   "raw",
	Typed: "typed",
	Full:  "full",
}

func (m DecompileMode) String() string {
	if int(m) < len(modeStrings) {
		return modeStrings[m]
	}
	return fmt.Sprintf("DecompileMode(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m DecompileMode) MarshalText() ([]byte, error) {
	if int(m) >= len(modeStrings) {
		return nil, fmt.Errorf("invalid decompile mode %d", uint8(m))
	}
	return []byte(modeStrings[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DecompileMode) UnmarshalText(text []byte) error {
	for i, s := range modeStrings {
		if string(text) == s {
			*m = DecompileMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown decompile mode %q", text)
}

// Decoder decodes a stream of bytes into an empfile.Document.
type Decoder struct {
	// Decompile indicates how far the decoded document is decompiled.
	Decompile DecompileMode

	// Meshes decodes embedded mesh blobs. If nil, RawMeshCodec is used.
	Meshes MeshCodec

	// Logger receives debug records of decoded structures. If nil, nothing
	// is logged.
	Logger *slog.Logger
}

// Parse decodes data into a Document in raw form. Warnings are discarded.
func Parse(data []byte) (*empfile.Document, error) {
	doc, _, err := Decoder{}.DecodeBytes(data)
	return doc, err
}

// Decode reads data from r and decodes it into a Document.
//
// A non-nil warn indicates problems that did not prevent decoding, such as
// reserved bytes with unexpected content. If err is non-nil, then doc is nil.
func (d Decoder) Decode(r io.Reader) (doc *empfile.Document, warn, err error) {
	if r == nil {
		return nil, nil, errors.New("nil reader")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return d.DecodeBytes(data)
}

// DecodeBytes is like Decode, but decodes from a byte slice.
func (d Decoder) DecodeBytes(data []byte) (doc *empfile.Document, warn, err error) {
	s, err := d.decode(data)
	warn = s.warns.Return()
	if err != nil {
		return nil, warn, err
	}
	doc = s.document()

	switch d.Decompile {
	case Typed:
		err = doc.Decompile(false)
	case Full:
		err = doc.Decompile(true)
	}
	if err != nil {
		return nil, warn, err
	}
	return doc, warn, nil
}

// decodeState holds the state of a single decoding.
type decodeState struct {
	reader
	meshes MeshCodec
	log    *slog.Logger

	header   fileHeader
	arena    arena
	root     int
	slots    []pendingSlot
	samplers []*empfile.TextureSampler
}

func (d Decoder) newState(data []byte) *decodeState {
	s := &decodeState{
		reader: reader{buf: data},
		meshes: d.Meshes,
		log:    d.Logger,
		root:   noLink,
	}
	if s.meshes == nil {
		s.meshes = RawMeshCodec{}
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s
}

// decode parses the whole file. The returned state is never nil.
func (d Decoder) decode(data []byte) (s *decodeState, err error) {
	s = d.newState(data)
	h := &s.header
	if err := s.read(0, h); err != nil {
		return s, err
	}
	if !bytes.Equal(h.Signature[:], []byte(signature)) {
		return s, FormatError{Offset: 0, Cause: ErrInvalidSig}
	}
	switch h.EndianMark {
	case endianMark:
	case swappedEndianMark:
		return s, FormatError{Offset: 4, Cause: ErrBigEndian}
	default:
		return s, formatError(4, "invalid byte order mark %04X", h.EndianMark)
	}
	if h.HeaderSize != headerSize {
		s.warns = append(s.warns, formatError(6, "unexpected header size %d", h.HeaderSize))
	}
	s.reserved16(10, h.Reserved)
	s.reserved(24, h.Reserved2[:])
	if h.RootCount < 0 {
		return s, formatError(12, "negative root count %d", h.RootCount)
	}
	s.log.Debug("header",
		"version", empfile.Version(h.Version),
		"roots", h.RootCount,
		"samplers", h.SamplerCount,
	)

	if h.RootCount > 0 {
		pos, err := s.rel(0, h.RootOffset)
		if err != nil {
			return s, err
		}
		root, count, err := s.parseSiblings(pos, empfile.NoShape)
		if err != nil {
			return s, err
		}
		if count != int(h.RootCount) {
			return s, formatError(12, "root chain has %d nodes, expected %d", count, h.RootCount)
		}
		s.root = root
	} else if h.RootOffset != 0 {
		s.warns = append(s.warns, formatError(16, "root offset %d with no roots", h.RootOffset))
	}

	if s.samplers, err = s.readSamplers(h); err != nil {
		return s, err
	}
	var width int64 = 1
	if len(s.samplers) > 0 {
		width = layouts[empfile.Version(h.Version)].SamplerSize
	}
	if err := s.resolveSlots(int64(h.SamplerOffset), width, s.samplers); err != nil {
		return s, err
	}
	return s, nil
}

// document assembles the decoded Document.
func (s *decodeState) document() *empfile.Document {
	return &empfile.Document{
		Version:  empfile.Version(s.header.Version),
		Nodes:    s.arena.tree(s.root),
		Samplers: s.samplers,
	}
}
