package pgp

import (
	"bytes"
	"errors"
)

// Packet is a framed packet: its header and the body bytes the header delimits.
// The body is a copy of the input and is not interpreted.
type Packet struct {
	Header Header
	Body   []byte
}

// ReadPacket frames the packet at the start of data and returns it together
// with the bytes that follow it. An indeterminate-length body takes the rest
// of data.
func ReadPacket(data []byte) (Packet, []byte, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Packet{}, nil, err
	}
	rest := data[h.Size:]
	if h.Indeterminate {
		return Packet{Header: h, Body: bytes.Clone(rest)}, nil, nil
	}
	if uint64(h.Length) > uint64(len(rest)) {
		return Packet{}, nil, errorf(ErrFraming, "packet body", h.Size, "declared length %d, %d bytes available", h.Length, len(rest))
	}
	return Packet{Header: h, Body: bytes.Clone(rest[:h.Length])}, rest[h.Length:], nil
}

// ReadPackets frames every packet in data.
func ReadPackets(data []byte) ([]Packet, error) {
	var packets []Packet
	offset := 0
	for len(data) > 0 {
		p, rest, err := ReadPacket(data)
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				de.Offset += offset
			}
			return nil, err
		}
		packets = append(packets, p)
		offset += len(data) - len(rest)
		data = rest
	}
	return packets, nil
}

// Bytes re-encodes p, header first.
func (p Packet) Bytes() ([]byte, error) {
	length := p.Header.Length
	if !p.Header.Indeterminate {
		length = uint32(len(p.Body))
	}
	h, err := EncodeHeader(p.Header.Tag, length)
	if err != nil {
		return nil, err
	}
	return append(h, p.Body...), nil
}
