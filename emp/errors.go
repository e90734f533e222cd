package emp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emptools/empfile"
	"github.com/emptools/empfile/errors"
)

var (
	// Indicates an unexpected file signature.
	ErrInvalidSig = errors.New("invalid signature")
	// Indicates a file written with big-endian byte order.
	ErrBigEndian = errors.New("big-endian files are not supported")
	// Indicates that a record extends past the end of the data.
	ErrTruncated = errors.New("unexpected end of data")
	// Indicates an offset that points outside of the data, or that does not
	// advance.
	ErrOutOfRange = errors.New("offset out of range")
	// Indicates a record that is reached by more than one offset.
	ErrSharedRecord = errors.New("record is shared")
)

// FormatError wraps an error that occurred while decoding or encoding the
// binary format. No partial result accompanies a FormatError.
type FormatError struct {
	// Offset is the byte offset where the error occurred, or -1 if unknown.
	Offset int64

	Cause error
}

func (err FormatError) Error() string {
	var s strings.Builder
	s.WriteString("format error")
	if err.Offset >= 0 {
		s.WriteString(" at ")
		s.Write(strconv.AppendInt(nil, err.Offset, 10))
	}
	if err.Cause != nil {
		s.WriteString(": ")
		s.WriteString(err.Cause.Error())
	}
	return s.String()
}

func (err FormatError) Unwrap() error {
	return err.Cause
}

// UnsupportedVersionError indicates a version for which a record width is
// not known.
type UnsupportedVersionError empfile.Version

func (err UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported version %d", uint16(err))
}

// UnknownKindError indicates an unknown node kind byte.
type UnknownKindError uint8

func (err UnknownKindError) Error() string {
	return fmt.Sprintf("unknown node kind %d", uint8(err))
}

// UnknownVariantError indicates an unknown emitter shape or emission kind
// byte.
type UnknownVariantError struct {
	Kind    empfile.NodeKind
	Variant uint8
}

func (err UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown %s variant %d", err.Kind, err.Variant)
}

// UnknownScrollError indicates an unknown sampler scroll type.
type UnknownScrollError uint16

func (err UnknownScrollError) Error() string {
	return fmt.Sprintf("unknown scroll type %d", uint16(err))
}

// ReserveError is a warning that indicates reserved bytes with unexpected
// content.
type ReserveError struct {
	// Offset is the location of the reserved bytes.
	Offset int64
	// Bytes is the content of the reserved bytes.
	Bytes []byte
}

func (err ReserveError) Error() string {
	return fmt.Sprintf("non-zero reserved bytes at %d: % 02X", err.Offset, err.Bytes)
}

func formatError(off int64, format string, v ...interface{}) error {
	return FormatError{Offset: off, Cause: fmt.Errorf(format, v...)}
}
