package pgp

import "fmt"

// Format is the packet header format selected by bit 6 of the tag octet.
type Format uint8

const (
	FormatOld Format = iota
	FormatNew
)

func (f Format) String() string {
	if f == FormatNew {
		return "new"
	}
	return "old"
}

// LengthType is the old-format length encoding held in bits 1-0 of the tag octet.
type LengthType uint8

const (
	LengthOneOctet LengthType = iota
	LengthTwoOctet
	LengthFourOctet
	LengthIndeterminate
)

func (l LengthType) String() string {
	switch l {
	case LengthOneOctet:
		return "one-octet"
	case LengthTwoOctet:
		return "two-octet"
	case LengthFourOctet:
		return "four-octet"
	case LengthIndeterminate:
		return "indeterminate"
	}
	return fmt.Sprintf("LengthType(%d)", uint8(l))
}

// PacketType identifies the content of a packet.
//
// Reference: https://www.rfc-editor.org/rfc/rfc4880#section-4.3
type PacketType uint8

const (
	PacketPublicKeyEncryptedSessionKey PacketType = 1
	PacketSignature                    PacketType = 2
	PacketSymmetricKeyEncryptedKey     PacketType = 3
	PacketOnePassSignature             PacketType = 4
	PacketSecretKey                    PacketType = 5
	PacketPublicKey                    PacketType = 6
	PacketSecretSubkey                 PacketType = 7
	PacketCompressedData               PacketType = 8
	PacketSymmetricallyEncryptedData   PacketType = 9
	PacketMarker                       PacketType = 10
	PacketLiteralData                  PacketType = 11
	PacketTrust                        PacketType = 12
	PacketUserID                       PacketType = 13
	PacketPublicSubkey                 PacketType = 14
	PacketUserAttribute                PacketType = 17
	PacketSymEncryptedIntegrityData    PacketType = 18
	PacketModificationDetectionCode    PacketType = 19
	PacketPrivate60                    PacketType = 60
	PacketPrivate61                    PacketType = 61
	PacketPrivate62                    PacketType = 62
	PacketPrivate63                    PacketType = 63
)

var packetTypeNames = map[PacketType]string{
	PacketPublicKeyEncryptedSessionKey: "PublicKeyEncryptedSessionKey",
	PacketSignature:                    "Signature",
	PacketSymmetricKeyEncryptedKey:     "SymmetricKeyEncryptedSessionKey",
	PacketOnePassSignature:             "OnePassSignature",
	PacketSecretKey:                    "SecretKey",
	PacketPublicKey:                    "PublicKey",
	PacketSecretSubkey:                 "SecretSubkey",
	PacketCompressedData:               "CompressedData",
	PacketSymmetricallyEncryptedData:   "SymmetricallyEncryptedData",
	PacketMarker:                       "Marker",
	PacketLiteralData:                  "LiteralData",
	PacketTrust:                        "Trust",
	PacketUserID:                       "UserID",
	PacketPublicSubkey:                 "PublicSubkey",
	PacketUserAttribute:                "UserAttribute",
	PacketSymEncryptedIntegrityData:    "SymEncryptedIntegrityProtectedData",
	PacketModificationDetectionCode:    "ModificationDetectionCode",
	PacketPrivate60:                    "Private60",
	PacketPrivate61:                    "Private61",
	PacketPrivate62:                    "Private62",
	PacketPrivate63:                    "Private63",
}

func (t PacketType) String() string {
	if name, ok := packetTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PacketType(%d)", uint8(t))
}

// Known reports whether t is in the recognized packet type set.
func (t PacketType) Known() bool {
	_, ok := packetTypeNames[t]
	return ok
}

// Tag is the decoded first octet of a packet header.
type Tag struct {
	Format Format
	Type   PacketType
	// LengthType is only meaningful for FormatOld.
	LengthType LengthType
}

// DecodeTag decodes a packet tag octet.
// It fails with ErrInvalidTag when bit 7 is clear or the type is 0, and with
// ErrUnsupportedType when the type is not a recognized packet type.
func DecodeTag(b byte) (Tag, error) {
	const stage = "packet tag"
	if b&0x80 == 0 {
		return Tag{}, errorf(ErrInvalidTag, stage, 0, "octet %#02x has bit 7 clear", b)
	}
	var t Tag
	if b&0x40 != 0 {
		t.Format = FormatNew
		t.Type = PacketType(b & 0x3F)
	} else {
		t.Format = FormatOld
		t.Type = PacketType((b >> 2) & 0x0F)
		t.LengthType = LengthType(b & 0x03)
	}
	if t.Type == 0 {
		return Tag{}, errorf(ErrInvalidTag, stage, 0, "reserved packet type 0")
	}
	if !t.Type.Known() {
		return Tag{}, errorf(ErrUnsupportedType, stage, 0, "packet type %d", uint8(t.Type))
	}
	return t, nil
}

// Byte encodes t as a tag octet.
func (t Tag) Byte() byte {
	if t.Format == FormatNew {
		return 0xC0 | byte(t.Type)&0x3F
	}
	return 0x80 | (byte(t.Type)&0x0F)<<2 | byte(t.LengthType)&0x03
}

func (t Tag) String() string {
	if t.Format == FormatNew {
		return fmt.Sprintf("%s (new)", t.Type)
	}
	return fmt.Sprintf("%s (old, %s length)", t.Type, t.LengthType)
}
