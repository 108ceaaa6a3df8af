package pgp

import (
	"encoding/binary"
	"fmt"
)

// Header is a decoded packet header.
type Header struct {
	Tag Tag
	// Length is the body length in bytes. It is zero when Indeterminate is set.
	Length uint32
	// Indeterminate is set for old-format headers with length type 3: the
	// body extends to the end of the input.
	Indeterminate bool
	// Size is the number of bytes the header occupies (tag plus length octets).
	Size int
}

// DecodeHeader decodes the packet header at the start of data.
//
// Old-format headers carry a 1, 2 or 4 byte length after the tag, or none
// for the indeterminate length type. New-format headers use the RFC 4880
// section 4.2.2 encodings:
//
//	first < 192         length = first
//	192 <= first < 224  length = (first-192)<<8 + second + 192
//	first == 255        length = next 4 bytes, big-endian
//
// A first octet in 224..254 introduces a partial body length, which is
// reported as ErrUnsupported.
func DecodeHeader(data []byte) (Header, error) {
	c := &cursor{buf: data, stage: "packet header"}
	b, err := c.byte()
	if err != nil {
		return Header{}, err
	}
	tag, err := DecodeTag(b)
	if err != nil {
		return Header{}, err
	}
	h := Header{Tag: tag}

	if tag.Format == FormatOld {
		var n int
		switch tag.LengthType {
		case LengthOneOctet:
			n = 1
		case LengthTwoOctet:
			n = 2
		case LengthFourOctet:
			n = 4
		case LengthIndeterminate:
			h.Indeterminate = true
			h.Size = c.off
			return h, nil
		}
		l, err := c.uint(n)
		if err != nil {
			return Header{}, err
		}
		h.Length = uint32(l)
		h.Size = c.off
		return h, nil
	}

	first, err := c.byte()
	if err != nil {
		return Header{}, err
	}
	switch {
	case first < 192:
		h.Length = uint32(first)
	case first < 224:
		second, err := c.byte()
		if err != nil {
			return Header{}, err
		}
		h.Length = (uint32(first)-192)<<8 + uint32(second) + 192
	case first == 255:
		l, err := c.uint(4)
		if err != nil {
			return Header{}, err
		}
		h.Length = uint32(l)
	default:
		return Header{}, errorf(ErrUnsupported, c.stage, 1, "partial body length of %d bytes", 1<<(first&0x1F))
	}
	h.Size = c.off
	return h, nil
}

// EncodeHeader returns the header bytes for a packet with the given tag and body length.
// Old-format tags use the length type they carry; new-format tags use the
// shortest length encoding.
func EncodeHeader(tag Tag, length uint32) ([]byte, error) {
	out := []byte{tag.Byte()}
	if tag.Format == FormatOld {
		if tag.Type > 15 {
			return nil, fmt.Errorf("pgp: packet type %d cannot be encoded in an old-format tag", uint8(tag.Type))
		}
		switch tag.LengthType {
		case LengthOneOctet:
			if length > 0xFF {
				return nil, fmt.Errorf("pgp: length %d does not fit a one-octet length", length)
			}
			return append(out, byte(length)), nil
		case LengthTwoOctet:
			if length > 0xFFFF {
				return nil, fmt.Errorf("pgp: length %d does not fit a two-octet length", length)
			}
			return binary.BigEndian.AppendUint16(out, uint16(length)), nil
		case LengthFourOctet:
			return binary.BigEndian.AppendUint32(out, length), nil
		default:
			return out, nil
		}
	}
	return appendNewLength(out, length), nil
}

// appendNewLength appends the shortest new-format length encoding of l.
func appendNewLength(out []byte, l uint32) []byte {
	switch {
	case l < 192:
		return append(out, byte(l))
	case l <= 8383:
		l -= 192
		return append(out, byte(l>>8)+192, byte(l))
	default:
		out = append(out, 0xFF)
		return binary.BigEndian.AppendUint32(out, l)
	}
}
