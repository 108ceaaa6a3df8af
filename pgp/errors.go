package pgp

import (
	"errors"
	"fmt"
)

// Error kinds returned by the decoders. Use errors.Is to classify a failure.
//
// ErrUnsupported marks input that is well formed but uses a feature this
// package does not implement (partial body lengths). Every other kind means
// the input is malformed or outside the recognized value sets.
var (
	ErrFraming            = errors.New("framing error")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
	ErrInvalidTag         = errors.New("invalid packet tag")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrUnsupportedType    = errors.New("unsupported type")
	ErrUnsupported        = errors.New("unsupported feature")
	ErrUnknownKey         = errors.New("issuer key not in keyring")
)

// Kind classifies the outcome of a decode.
type Kind int

const (
	Supported Kind = iota
	Unsupported
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Supported:
		return "supported"
	case Unsupported:
		return "unsupported"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindOf reports whether err is nil (Supported), an unimplemented but
// recognized feature (Unsupported), or anything else (Malformed).
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return Supported
	case errors.Is(err, ErrUnsupported):
		return Unsupported
	default:
		return Malformed
	}
}

// DecodeError describes where a decoder stopped.
type DecodeError struct {
	Err    error  // one of the Err* kinds
	Stage  string // what was being read, e.g. "hashed subpackets"
	Offset int    // byte offset within the decoder's input
	Detail string
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("pgp: %s: %v at offset %d", e.Stage, e.Err, e.Offset)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func errorf(kind error, stage string, offset int, format string, args ...interface{}) error {
	return &DecodeError{Err: kind, Stage: stage, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}
