package pgp

import (
	"errors"
	"testing"
)

func TestDecodeTag(t *testing.T) {
	tests := []struct {
		in   byte
		want Tag
	}{
		{0x88, Tag{Format: FormatOld, Type: PacketSignature, LengthType: LengthOneOctet}},
		{0x89, Tag{Format: FormatOld, Type: PacketSignature, LengthType: LengthTwoOctet}},
		{0x8A, Tag{Format: FormatOld, Type: PacketSignature, LengthType: LengthFourOctet}},
		{0x8B, Tag{Format: FormatOld, Type: PacketSignature, LengthType: LengthIndeterminate}},
		{0x99, Tag{Format: FormatOld, Type: PacketPublicKey, LengthType: LengthTwoOctet}},
		{0xB4, Tag{Format: FormatOld, Type: PacketUserID, LengthType: LengthOneOctet}},
		{0xC2, Tag{Format: FormatNew, Type: PacketSignature}},
		{0xD1, Tag{Format: FormatNew, Type: PacketUserAttribute}},
		{0xFC, Tag{Format: FormatNew, Type: PacketPrivate60}},
	}
	for _, tt := range tests {
		got, err := DecodeTag(tt.in)
		if err != nil {
			t.Errorf("DecodeTag(%#02x) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeTag(%#02x) = %+v, want %+v", tt.in, got, tt.want)
		}
		if b := got.Byte(); b != tt.in {
			t.Errorf("Tag.Byte() = %#02x, want %#02x", b, tt.in)
		}
	}
}

func TestDecodeTagErrors(t *testing.T) {
	tests := []struct {
		in   byte
		want error
	}{
		{0x00, ErrInvalidTag},
		{0x09, ErrInvalidTag},
		{0x7F, ErrInvalidTag},
		{0x80, ErrInvalidTag},
		{0xC0, ErrInvalidTag},
		{0xBC, ErrUnsupportedType}, // old format, type 15
		{0xC0 | 16, ErrUnsupportedType},
		{0xC0 | 20, ErrUnsupportedType},
		{0xC0 | 59, ErrUnsupportedType},
	}
	for _, tt := range tests {
		_, err := DecodeTag(tt.in)
		if !errors.Is(err, tt.want) {
			t.Errorf("DecodeTag(%#02x): expected %v, got %v", tt.in, tt.want, err)
		}
		if KindOf(err) != Malformed {
			t.Errorf("DecodeTag(%#02x): expected a malformed kind, got %s", tt.in, KindOf(err))
		}
	}
}

func TestTagString(t *testing.T) {
	tag, _ := DecodeTag(0x89)
	if got := tag.String(); got != "Signature (old, two-octet length)" {
		t.Errorf("unexpected String(): %q", got)
	}
	if got := PacketType(42).String(); got != "PacketType(42)" {
		t.Errorf("unexpected String(): %q", got)
	}
}
