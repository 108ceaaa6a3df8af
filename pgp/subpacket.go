package pgp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// SubpacketType identifies a signature subpacket.
// Unlike packet and signature types, unrecognized subpacket types are kept
// as raw payloads rather than rejected.
//
// Reference: https://www.rfc-editor.org/rfc/rfc4880#section-5.2.3.1
type SubpacketType uint8

const (
	SubCreationTime                   SubpacketType = 2
	SubExpirationTime                 SubpacketType = 3
	SubExportableCertification        SubpacketType = 4
	SubTrustSignature                 SubpacketType = 5
	SubRegularExpression              SubpacketType = 6
	SubRevocable                      SubpacketType = 7
	SubKeyExpirationTime              SubpacketType = 9
	SubPreferredSymmetricAlgorithms   SubpacketType = 11
	SubRevocationKey                  SubpacketType = 12
	SubIssuer                         SubpacketType = 16
	SubNotationData                   SubpacketType = 20
	SubPreferredHashAlgorithms        SubpacketType = 21
	SubPreferredCompressionAlgorithms SubpacketType = 22
	SubKeyServerPreferences           SubpacketType = 23
	SubPreferredKeyServer             SubpacketType = 24
	SubPrimaryUserID                  SubpacketType = 25
	SubPolicyURI                      SubpacketType = 26
	SubKeyFlags                       SubpacketType = 27
	SubSignersUserID                  SubpacketType = 28
	SubReasonForRevocation            SubpacketType = 29
	SubFeatures                       SubpacketType = 30
	SubSignatureTarget                SubpacketType = 31
	SubEmbeddedSignature              SubpacketType = 32
	SubIssuerFingerprint              SubpacketType = 33
)

var subpacketTypeNames = map[SubpacketType]string{
	SubCreationTime:                   "CreationTime",
	SubExpirationTime:                 "ExpirationTime",
	SubExportableCertification:        "ExportableCertification",
	SubTrustSignature:                 "TrustSignature",
	SubRegularExpression:              "RegularExpression",
	SubRevocable:                      "Revocable",
	SubKeyExpirationTime:              "KeyExpirationTime",
	SubPreferredSymmetricAlgorithms:   "PreferredSymmetricAlgorithms",
	SubRevocationKey:                  "RevocationKey",
	SubIssuer:                         "Issuer",
	SubNotationData:                   "NotationData",
	SubPreferredHashAlgorithms:        "PreferredHashAlgorithms",
	SubPreferredCompressionAlgorithms: "PreferredCompressionAlgorithms",
	SubKeyServerPreferences:           "KeyServerPreferences",
	SubPreferredKeyServer:             "PreferredKeyServer",
	SubPrimaryUserID:                  "PrimaryUserID",
	SubPolicyURI:                      "PolicyURI",
	SubKeyFlags:                       "KeyFlags",
	SubSignersUserID:                  "SignersUserID",
	SubReasonForRevocation:            "ReasonForRevocation",
	SubFeatures:                       "Features",
	SubSignatureTarget:                "SignatureTarget",
	SubEmbeddedSignature:              "EmbeddedSignature",
	SubIssuerFingerprint:              "IssuerFingerprint",
}

// String returns the name used to key t in a Subpackets map.
func (t SubpacketType) String() string {
	if name, ok := subpacketTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Subpacket%d", uint8(t))
}

// SubPacket is one decoded signature subpacket.
type SubPacket struct {
	Type SubpacketType
	// Critical is bit 7 of the type octet.
	Critical bool
	// Length counts the type octet and the payload.
	Length int
	// Payload holds the raw bytes after the type octet, whatever the type.
	Payload []byte

	// Time is set for CreationTime and ExpirationTime subpackets.
	Time time.Time
	// IssuerKeyID is set for Issuer subpackets: 16 uppercase hex digits.
	IssuerKeyID string

	lengthOctets int
}

// Value returns the decoded view of the payload: a time.Time for time
// subpackets, the key id string for Issuer, the raw bytes otherwise.
func (s SubPacket) Value() interface{} {
	switch s.Type {
	case SubCreationTime, SubExpirationTime:
		return s.Time
	case SubIssuer:
		return s.IssuerKeyID
	}
	return s.Payload
}

// Bytes re-encodes s: length octets, type octet, payload.
func (s SubPacket) Bytes() []byte {
	l := uint32(len(s.Payload) + 1)
	var out []byte
	switch {
	case s.lengthOctets == 5 || l > 16319:
		out = binary.BigEndian.AppendUint32([]byte{0xFF}, l)
	case l >= 192:
		l -= 192
		out = []byte{byte(l>>8) + 192, byte(l)}
	default:
		out = []byte{byte(l)}
	}
	t := byte(s.Type)
	if s.Critical {
		t |= 0x80
	}
	out = append(out, t)
	return append(out, s.Payload...)
}

// decodeSubpacket reads one subpacket at the cursor position.
func decodeSubpacket(c *cursor) (SubPacket, error) {
	start := c.off
	first, err := c.byte()
	if err != nil {
		return SubPacket{}, err
	}
	var length uint64
	switch {
	case first < 192:
		length = uint64(first)
	case first < 255:
		second, err := c.byte()
		if err != nil {
			return SubPacket{}, err
		}
		length = (uint64(first)-192)<<8 + uint64(second) + 192
	default:
		if length, err = c.uint(4); err != nil {
			return SubPacket{}, err
		}
	}
	if length == 0 {
		return SubPacket{}, errorf(ErrFraming, c.stage, start, "zero-length subpacket")
	}
	sp := SubPacket{Length: int(length), lengthOctets: c.off - start}

	body, err := c.next(int(length))
	if err != nil {
		return SubPacket{}, err
	}
	sp.Type = SubpacketType(body[0] & 0x7F)
	sp.Critical = body[0]&0x80 != 0
	sp.Payload = bytes.Clone(body[1:])

	switch sp.Type {
	case SubCreationTime, SubExpirationTime:
		if len(sp.Payload) != 4 {
			return SubPacket{}, errorf(ErrFraming, c.stage, start, "%s payload is %d bytes, want 4", sp.Type, len(sp.Payload))
		}
		sp.Time = time.Unix(int64(BytesToUint(sp.Payload)), 0).UTC()
	case SubIssuer:
		if len(sp.Payload) != 8 {
			return SubPacket{}, errorf(ErrFraming, c.stage, start, "Issuer payload is %d bytes, want 8", len(sp.Payload))
		}
		sp.IssuerKeyID = fmt.Sprintf("%016X", BytesToUint(sp.Payload))
	}
	return sp, nil
}

// Subpackets is an ordered map of subpackets keyed by type name.
// When a type occurs more than once the later subpacket replaces the earlier
// one in the map view, while All and Bytes still see every subpacket.
type Subpackets struct {
	all   []SubPacket
	names []string
	index map[string]int
}

// DecodeSubpackets decodes a hashed or unhashed subpacket region.
// The region must be consumed exactly.
func DecodeSubpackets(region []byte) (Subpackets, error) {
	return decodeSubpackets(region, "subpackets")
}

func decodeSubpackets(region []byte, stage string) (Subpackets, error) {
	var s Subpackets
	c := &cursor{buf: region, stage: stage}
	for c.remaining() > 0 {
		sp, err := decodeSubpacket(c)
		if err != nil {
			return Subpackets{}, err
		}
		s.add(sp)
	}
	return s, nil
}

func (s *Subpackets) add(sp SubPacket) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	name := sp.Type.String()
	if _, ok := s.index[name]; !ok {
		s.names = append(s.names, name)
	}
	s.index[name] = len(s.all)
	s.all = append(s.all, sp)
}

// Get returns the subpacket stored under name.
func (s Subpackets) Get(name string) (SubPacket, bool) {
	i, ok := s.index[name]
	if !ok {
		return SubPacket{}, false
	}
	return s.all[i], true
}

// Lookup returns the subpacket of type t.
func (s Subpackets) Lookup(t SubpacketType) (SubPacket, bool) {
	return s.Get(t.String())
}

// Names returns the type names in first-seen order.
func (s Subpackets) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of distinct type names.
func (s Subpackets) Len() int { return len(s.names) }

// All returns every decoded subpacket in region order, duplicates included.
func (s Subpackets) All() []SubPacket {
	return append([]SubPacket(nil), s.all...)
}

// Bytes re-encodes the region, without its 2-byte length prefix.
func (s Subpackets) Bytes() []byte {
	var out []byte
	for _, sp := range s.all {
		out = append(out, sp.Bytes()...)
	}
	return out
}
