package pgp

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeHeaderOldFormat(t *testing.T) {
	tests := []struct {
		in            []byte
		length        uint32
		size          int
		indeterminate bool
	}{
		{[]byte{0x88, 0x86}, 134, 2, false},
		{[]byte{0x89, 0x01, 0x33}, 307, 3, false},
		{[]byte{0x8A, 0x00, 0x01, 0x00, 0x00}, 65536, 5, false},
		{[]byte{0x8B, 0x04, 0x00}, 0, 1, true},
	}
	for _, tt := range tests {
		h, err := DecodeHeader(tt.in)
		if err != nil {
			t.Errorf("DecodeHeader(%x) failed: %v", tt.in, err)
			continue
		}
		if h.Length != tt.length || h.Size != tt.size || h.Indeterminate != tt.indeterminate {
			t.Errorf("DecodeHeader(%x) = %+v, want length %d size %d indeterminate %v", tt.in, h, tt.length, tt.size, tt.indeterminate)
		}
	}
}

func TestDecodeHeaderNewFormat(t *testing.T) {
	tests := []struct {
		in     []byte
		length uint32
		size   int
	}{
		{[]byte{0xC2, 0x00}, 0, 2},
		{[]byte{0xC2, 0xBF}, 191, 2},
		{[]byte{0xC2, 0xC0, 0x00}, 192, 3},
		{[]byte{0xC2, 0xC0, 0xFF}, 447, 3},
		{[]byte{0xC2, 0xDF, 0xFF}, 8383, 3},
		{[]byte{0xC2, 0xFF, 0x00, 0x00, 0x00, 0x05}, 5, 6},
		{[]byte{0xC2, 0xFF, 0x00, 0x00, 0x20, 0xC0}, 8384, 6},
		{[]byte{0xC2, 0xFF, 0x00, 0x01, 0x00, 0x00}, 65536, 6},
	}
	for _, tt := range tests {
		h, err := DecodeHeader(tt.in)
		if err != nil {
			t.Errorf("DecodeHeader(%x) failed: %v", tt.in, err)
			continue
		}
		if h.Tag.Format != FormatNew || h.Tag.Type != PacketSignature {
			t.Errorf("DecodeHeader(%x): unexpected tag %+v", tt.in, h.Tag)
		}
		if h.Length != tt.length || h.Size != tt.size {
			t.Errorf("DecodeHeader(%x) = length %d size %d, want %d %d", tt.in, h.Length, h.Size, tt.length, tt.size)
		}
	}
}

// A two-octet length is selected by the first length octet alone. Reading
// both octets as one integer and comparing it to 8383 would pick a five-octet
// length for this header and misread the body length as 0xC500.
func TestDecodeHeaderTwoOctetUsesFirstOctet(t *testing.T) {
	h, err := DecodeHeader([]byte{0xC2, 0xC5, 0x00, 0xAA, 0xBB, 0xCC})
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if h.Length != 1472 || h.Size != 3 {
		t.Errorf("expected length 1472 in 3 bytes, got %d in %d", h.Length, h.Size)
	}
}

func TestDecodeHeaderPartialLength(t *testing.T) {
	for first := 224; first <= 254; first++ {
		_, err := DecodeHeader([]byte{0xC2, byte(first), 0x00})
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("first octet %d: expected ErrUnsupported, got %v", first, err)
		}
		if KindOf(err) != Unsupported {
			t.Errorf("first octet %d: expected Unsupported kind, got %s", first, KindOf(err))
		}
	}
}

func TestDecodeHeaderTruncated(t *testing.T) {
	tests := [][]byte{
		{},
		{0x88},
		{0x89, 0x01},
		{0x8A, 0x00, 0x00, 0x01},
		{0xC2},
		{0xC2, 0xC0},
		{0xC2, 0xFF, 0x00, 0x00, 0x01},
	}
	for _, in := range tests {
		_, err := DecodeHeader(in)
		if !errors.Is(err, ErrFraming) {
			t.Errorf("DecodeHeader(%x): expected ErrFraming, got %v", in, err)
		}
	}
}

func TestEncodeHeader(t *testing.T) {
	sigNew := Tag{Format: FormatNew, Type: PacketSignature}
	tests := []struct {
		tag    Tag
		length uint32
		want   []byte
	}{
		{sigNew, 0, []byte{0xC2, 0x00}},
		{sigNew, 191, []byte{0xC2, 0xBF}},
		{sigNew, 192, []byte{0xC2, 0xC0, 0x00}},
		{sigNew, 1472, []byte{0xC2, 0xC5, 0x00}},
		{sigNew, 8383, []byte{0xC2, 0xDF, 0xFF}},
		{sigNew, 8384, []byte{0xC2, 0xFF, 0x00, 0x00, 0x20, 0xC0}},
		{Tag{Type: PacketSignature, LengthType: LengthOneOctet}, 134, []byte{0x88, 0x86}},
		{Tag{Type: PacketSignature, LengthType: LengthTwoOctet}, 307, []byte{0x89, 0x01, 0x33}},
		{Tag{Type: PacketSignature, LengthType: LengthFourOctet}, 5, []byte{0x8A, 0, 0, 0, 5}},
		{Tag{Type: PacketSignature, LengthType: LengthIndeterminate}, 99, []byte{0x8B}},
	}
	for _, tt := range tests {
		got, err := EncodeHeader(tt.tag, tt.length)
		if err != nil {
			t.Errorf("EncodeHeader(%v, %d) failed: %v", tt.tag, tt.length, err)
			continue
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeHeader(%v, %d) = %x, want %x", tt.tag, tt.length, got, tt.want)
		}
		h, err := DecodeHeader(got)
		if err != nil {
			t.Errorf("DecodeHeader(%x) failed: %v", got, err)
			continue
		}
		if h.Tag != tt.tag || h.Size != len(got) {
			t.Errorf("DecodeHeader(%x) = %+v", got, h)
		}
	}

	if _, err := EncodeHeader(Tag{Type: PacketSignature, LengthType: LengthOneOctet}, 256); err == nil {
		t.Errorf("expected an error for a length overflowing one octet")
	}
	if _, err := EncodeHeader(Tag{Type: PacketUserAttribute}, 1); err == nil {
		t.Errorf("expected an error for an old-format type above 15")
	}
}
