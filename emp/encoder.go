package emp

import (
	"io"
	"log/slog"

	"github.com/emptools/empfile"
	"github.com/emptools/empfile/errors"
	"golang.org/x/crypto/blake2b"
)

// Encoder encodes an empfile.Document into a stream of bytes.
type Encoder struct {
	// Meshes encodes meshes that are not RawMeshes. If nil, RawMeshCodec is
	// used.
	Meshes MeshCodec

	// Logger receives debug records of encoded structures. If nil, nothing
	// is logged.
	Logger *slog.Logger
}

// Serialize encodes doc with the default Encoder.
func Serialize(doc *empfile.Document) ([]byte, error) {
	return Encoder{}.EncodeBytes(doc)
}

// Fingerprint returns the BLAKE2b-256 hash of the encoding of doc. Documents
// with the same encoding have the same fingerprint, regardless of whether
// they are compiled or decompiled.
func Fingerprint(doc *empfile.Document) ([blake2b.Size256]byte, error) {
	data, err := Serialize(doc)
	if err != nil {
		return [blake2b.Size256]byte{}, err
	}
	return blake2b.Sum256(data), nil
}

// Encode encodes doc and writes it to w.
func (e Encoder) Encode(w io.Writer, doc *empfile.Document) error {
	if w == nil {
		return errors.New("nil writer")
	}
	data, err := e.EncodeBytes(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// encodeState holds the state of a single encoding.
type encodeState struct {
	*writer
	meshes MeshCodec
	log    *slog.Logger

	arena    arena
	samplers map[*empfile.TextureSampler]label
}

// EncodeBytes encodes doc into a byte slice. The document is not modified;
// decompiled tracks are compiled into the output as they are written.
func (e Encoder) EncodeBytes(doc *empfile.Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	s := &encodeState{
		writer:   newWriter(),
		meshes:   e.Meshes,
		log:      e.Logger,
		samplers: make(map[*empfile.TextureSampler]label, len(doc.Samplers)),
	}
	if s.meshes == nil {
		s.meshes = RawMeshCodec{}
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}

	if len(doc.Nodes) > maxTopLevelCount {
		return nil, formatError(12, "%d root nodes exceed %d", len(doc.Nodes), maxTopLevelCount)
	}
	if len(doc.Samplers) > maxTopLevelCount {
		return nil, formatError(14, "%d samplers exceed %d", len(doc.Samplers), maxTopLevelCount)
	}
	var l layout
	if len(doc.Samplers) > 0 {
		var err error
		if l, err = layoutOf(doc.Version); err != nil {
			return nil, FormatError{Offset: 8, Cause: err}
		}
	}
	for i, smp := range doc.Samplers {
		if smp == nil {
			return nil, formatError(-1, "sampler %d is nil", i)
		}
		if _, ok := s.samplers[smp]; ok {
			return nil, formatError(-1, "sampler %d appears more than once", i)
		}
		s.samplers[smp] = s.label()
	}

	if err := checkNodes(doc.Nodes, map[*empfile.Node]bool{}); err != nil {
		return nil, err
	}
	s.arena.linearize(doc.Nodes, empfile.NoShape)
	for i := range s.arena.nodes {
		s.arena.nodes[i].Label = s.label()
	}

	h := fileHeader{
		EndianMark:   endianMark,
		HeaderSize:   headerSize,
		Version:      uint16(doc.Version),
		RootCount:    int16(len(doc.Nodes)),
		SamplerCount: int16(len(doc.Samplers)),
	}
	copy(h.Signature[:], signature)
	if len(s.arena.nodes) > 0 {
		s.link(16, 0, s.arena.nodes[0].Label)
	}
	table := s.label()
	if len(doc.Samplers) > 0 {
		s.link(20, 0, table)
	}
	if s.number(&h) {
		return nil, s.err()
	}

	for i := range s.arena.nodes {
		if s.writeNode(&s.arena.nodes[i]) {
			return nil, s.err()
		}
	}
	if len(doc.Samplers) > 0 {
		if s.writeSamplers(doc.Samplers, l, table) {
			return nil, s.err()
		}
	}

	data, err := s.finish()
	if err != nil {
		return nil, err
	}
	s.log.Debug("encoded", "nodes", len(s.arena.nodes), "samplers", len(doc.Samplers), "size", len(data))
	return data, nil
}

// err returns the error state of the writer as a FormatError.
func (s *encodeState) err() error {
	err := s.fw.Err()
	var ferr FormatError
	if err == nil || errors.As(err, &ferr) {
		return err
	}
	return FormatError{Offset: s.pos(), Cause: err}
}
