package pgp

import (
	"fmt"
	"io"
)

// Signature is a decoded detached signature file such as a Debian Release.gpg.
type Signature struct {
	Armor  *ArmoredMessage
	Header Header
	Packet *SignaturePacket
}

// ReadSignature decodes an armored detached signature: armor envelope,
// checksum, packet framing and signature body. The armored payload must hold
// exactly one signature packet. Nothing is returned on failure.
func ReadSignature(data []byte) (*Signature, error) {
	msg, err := DecodeArmor(data)
	if err != nil {
		return nil, err
	}
	h, sig, rest, err := ParseSignaturePacket(msg.Payload)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, errorf(ErrFraming, "packet stream", len(msg.Payload)-len(rest), "%d trailing bytes after signature packet", len(rest))
	}
	return &Signature{Armor: msg, Header: h, Packet: sig}, nil
}

// LoadSignature reads at most maxSize bytes from r and decodes them with
// ReadSignature. A maxSize of 0 or less disables the bound.
func LoadSignature(r io.Reader, maxSize int64) (*Signature, error) {
	data, err := readBounded(r, maxSize)
	if err != nil {
		return nil, err
	}
	return ReadSignature(data)
}

// Headers returns the armor headers.
func (s *Signature) Headers() Headers { return s.Armor.Headers }

// Bytes returns the armored encoding of the signature.
func (s *Signature) Bytes() []byte { return s.Armor.Bytes() }

func readBounded(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("pgp: input exceeds %d bytes", maxSize)
	}
	return data, nil
}
