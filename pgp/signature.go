package pgp

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// SignatureType is the class of data a signature covers.
// The set is closed: any other value fails decoding with ErrUnsupportedType.
//
// Reference: https://www.rfc-editor.org/rfc/rfc4880#section-5.2.1
type SignatureType uint8

const (
	SigBinaryDocument          SignatureType = 0x00
	SigTextDocument            SignatureType = 0x01
	SigStandalone              SignatureType = 0x02
	SigGenericCertification    SignatureType = 0x10
	SigPersonaCertification    SignatureType = 0x11
	SigCasualCertification     SignatureType = 0x12
	SigPositiveCertification   SignatureType = 0x13
	SigSubkeyBinding           SignatureType = 0x18
	SigPrimaryKeyBinding       SignatureType = 0x19
	SigDirectKey               SignatureType = 0x1F
	SigKeyRevocation           SignatureType = 0x20
	SigSubkeyRevocation        SignatureType = 0x28
	SigCertificationRevocation SignatureType = 0x30
	SigTimestamp               SignatureType = 0x40
	SigThirdPartyConfirmation  SignatureType = 0x50
)

var signatureTypeNames = map[SignatureType]string{
	SigBinaryDocument:          "BinaryDocument",
	SigTextDocument:            "TextDocument",
	SigStandalone:              "Standalone",
	SigGenericCertification:    "GenericCertification",
	SigPersonaCertification:    "PersonaCertification",
	SigCasualCertification:     "CasualCertification",
	SigPositiveCertification:   "PositiveCertification",
	SigSubkeyBinding:           "SubkeyBinding",
	SigPrimaryKeyBinding:       "PrimaryKeyBinding",
	SigDirectKey:               "DirectKey",
	SigKeyRevocation:           "KeyRevocation",
	SigSubkeyRevocation:        "SubkeyRevocation",
	SigCertificationRevocation: "CertificationRevocation",
	SigTimestamp:               "Timestamp",
	SigThirdPartyConfirmation:  "ThirdPartyConfirmation",
}

func (t SignatureType) String() string {
	if name, ok := signatureTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SignatureType(%#02x)", uint8(t))
}

// PublicKeyAlgorithm identifies the signing algorithm.
// Values are not validated.
type PublicKeyAlgorithm uint8

const (
	PubKeyRSA            PublicKeyAlgorithm = 1
	PubKeyRSAEncryptOnly PublicKeyAlgorithm = 2
	PubKeyRSASignOnly    PublicKeyAlgorithm = 3
	PubKeyElGamal        PublicKeyAlgorithm = 16
	PubKeyDSA            PublicKeyAlgorithm = 17
	PubKeyECDH           PublicKeyAlgorithm = 18
	PubKeyECDSA          PublicKeyAlgorithm = 19
	PubKeyEdDSA          PublicKeyAlgorithm = 22
)

func (a PublicKeyAlgorithm) String() string {
	switch a {
	case PubKeyRSA:
		return "RSA"
	case PubKeyRSAEncryptOnly:
		return "RSAEncryptOnly"
	case PubKeyRSASignOnly:
		return "RSASignOnly"
	case PubKeyElGamal:
		return "ElGamal"
	case PubKeyDSA:
		return "DSA"
	case PubKeyECDH:
		return "ECDH"
	case PubKeyECDSA:
		return "ECDSA"
	case PubKeyEdDSA:
		return "EdDSA"
	}
	return fmt.Sprintf("PublicKeyAlgorithm(%d)", uint8(a))
}

// HashAlgorithm identifies the digest algorithm. Values are not validated.
type HashAlgorithm uint8

const (
	HashMD5       HashAlgorithm = 1
	HashSHA1      HashAlgorithm = 2
	HashRIPEMD160 HashAlgorithm = 3
	HashSHA256    HashAlgorithm = 8
	HashSHA384    HashAlgorithm = 9
	HashSHA512    HashAlgorithm = 10
	HashSHA224    HashAlgorithm = 11
)

func (h HashAlgorithm) String() string {
	switch h {
	case HashMD5:
		return "MD5"
	case HashSHA1:
		return "SHA1"
	case HashRIPEMD160:
		return "RIPEMD160"
	case HashSHA256:
		return "SHA256"
	case HashSHA384:
		return "SHA384"
	case HashSHA512:
		return "SHA512"
	case HashSHA224:
		return "SHA224"
	}
	return fmt.Sprintf("HashAlgorithm(%d)", uint8(h))
}

// MPI is a multiprecision integer as framed in a signature packet.
type MPI struct {
	BitLength uint16
	// Value holds the (BitLength+7)/8 big-endian bytes.
	Value []byte
}

// Int returns the integer value of m.
func (m MPI) Int() *big.Int { return new(big.Int).SetBytes(m.Value) }

// SignaturePacket is a decoded version 4 signature packet body.
type SignaturePacket struct {
	Version       uint8
	Type          SignatureType
	KeyAlgorithm  PublicKeyAlgorithm
	HashAlgorithm HashAlgorithm
	Hashed        Subpackets
	Unhashed      Subpackets
	// Hash2 holds the leftmost 16 bits of the signed digest.
	Hash2 [2]byte
	// Integers are the algorithm-specific signature values: one for RSA,
	// two (r, s) for DSA and ECDSA.
	Integers []MPI
}

// DecodeSignature decodes a version 4 signature packet body (the bytes after
// the packet header). The body is read in order: fixed fields, hashed
// subpackets, unhashed subpackets, hash2, then integers until the body is
// exhausted. It returns nil and an error on any failure.
func DecodeSignature(body []byte) (*SignaturePacket, error) {
	c := &cursor{buf: body, stage: "signature version"}
	version, err := c.byte()
	if err != nil {
		return nil, err
	}
	if version != 4 {
		return nil, errorf(ErrUnsupportedVersion, c.stage, 0, "version %d", version)
	}
	sig := &SignaturePacket{Version: version}

	c.stage = "signature fields"
	fields, err := c.next(3)
	if err != nil {
		return nil, err
	}
	sig.Type = SignatureType(fields[0])
	if _, ok := signatureTypeNames[sig.Type]; !ok {
		return nil, errorf(ErrUnsupportedType, c.stage, 1, "signature type %#02x", fields[0])
	}
	sig.KeyAlgorithm = PublicKeyAlgorithm(fields[1])
	sig.HashAlgorithm = HashAlgorithm(fields[2])

	c.stage = "hashed subpackets"
	if sig.Hashed, err = readRegion(c); err != nil {
		return nil, err
	}
	c.stage = "unhashed subpackets"
	if sig.Unhashed, err = readRegion(c); err != nil {
		return nil, err
	}

	c.stage = "hash2"
	h2, err := c.next(2)
	if err != nil {
		return nil, err
	}
	copy(sig.Hash2[:], h2)

	c.stage = "integers"
	for c.remaining() > 0 {
		bits, err := c.uint(2)
		if err != nil {
			return nil, err
		}
		value, err := c.next(int(bits+7) / 8)
		if err != nil {
			return nil, err
		}
		sig.Integers = append(sig.Integers, MPI{BitLength: uint16(bits), Value: bytes.Clone(value)})
	}
	return sig, nil
}

// readRegion reads a 2-byte length prefixed subpacket region.
func readRegion(c *cursor) (Subpackets, error) {
	n, err := c.uint(2)
	if err != nil {
		return Subpackets{}, err
	}
	base := c.off
	region, err := c.next(int(n))
	if err != nil {
		return Subpackets{}, err
	}
	s, err := decodeSubpackets(region, c.stage)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Offset += base
		}
		return Subpackets{}, err
	}
	return s, nil
}

// ParseSignaturePacket frames the packet at the start of data and decodes it
// as a signature. It returns the header, the signature and the bytes following
// the packet. Non-signature packets fail with ErrUnsupportedType.
func ParseSignaturePacket(data []byte) (Header, *SignaturePacket, []byte, error) {
	p, rest, err := ReadPacket(data)
	if err != nil {
		return Header{}, nil, nil, err
	}
	if p.Header.Tag.Type != PacketSignature {
		return Header{}, nil, nil, errorf(ErrUnsupportedType, "packet tag", 0, "expected a Signature packet, got %s", p.Header.Tag.Type)
	}
	sig, err := DecodeSignature(p.Body)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Offset += p.Header.Size
		}
		return Header{}, nil, nil, err
	}
	return p.Header, sig, rest, nil
}

// CreationTime returns the signature creation time, from the hashed region
// or failing that the unhashed one.
func (s *SignaturePacket) CreationTime() (time.Time, bool) {
	if sp, ok := s.lookup(SubCreationTime); ok {
		return sp.Time, true
	}
	return time.Time{}, false
}

// ExpirationTime returns when the signature expires. The ExpirationTime
// subpacket counts seconds after the creation time; zero means it never
// expires, reported as false.
func (s *SignaturePacket) ExpirationTime() (time.Time, bool) {
	created, ok := s.CreationTime()
	if !ok {
		return time.Time{}, false
	}
	sp, ok := s.lookup(SubExpirationTime)
	if !ok {
		return time.Time{}, false
	}
	delta := BytesToUint(sp.Payload)
	if delta == 0 {
		return time.Time{}, false
	}
	return created.Add(time.Duration(delta) * time.Second), true
}

// IssuerKeyID returns the 64-bit id of the signing key as 16 uppercase hex
// digits. The Issuer subpacket is looked up in the unhashed region first;
// when absent, the id is derived from an IssuerFingerprint subpacket.
func (s *SignaturePacket) IssuerKeyID() (string, bool) {
	if sp, ok := s.Unhashed.Lookup(SubIssuer); ok {
		return sp.IssuerKeyID, true
	}
	if sp, ok := s.Hashed.Lookup(SubIssuer); ok {
		return sp.IssuerKeyID, true
	}
	if fp, ok := s.IssuerFingerprint(); ok && len(fp) >= 16 {
		return fp[len(fp)-16:], true
	}
	return "", false
}

// IssuerFingerprint returns the issuer key fingerprint in uppercase hex.
func (s *SignaturePacket) IssuerFingerprint() (string, bool) {
	sp, ok := s.lookup(SubIssuerFingerprint)
	if !ok || len(sp.Payload) < 2 {
		return "", false
	}
	// The first octet is the key version.
	return strings.ToUpper(hex.EncodeToString(sp.Payload[1:])), true
}

func (s *SignaturePacket) lookup(t SubpacketType) (SubPacket, bool) {
	if sp, ok := s.Hashed.Lookup(t); ok {
		return sp, true
	}
	return s.Unhashed.Lookup(t)
}

// ErrRegionTooLong is returned by SignaturePacket.Bytes when a subpacket
// region does not fit its 2-octet length.
var ErrRegionTooLong = errors.New("pgp: subpacket region exceeds 65535 bytes")

// Bytes re-encodes the signature packet body.
func (s *SignaturePacket) Bytes() ([]byte, error) {
	out := []byte{s.Version, byte(s.Type), byte(s.KeyAlgorithm), byte(s.HashAlgorithm)}
	for _, region := range []struct {
		name string
		data []byte
	}{
		{"hashed", s.Hashed.Bytes()},
		{"unhashed", s.Unhashed.Bytes()},
	} {
		if len(region.data) > 0xFFFF {
			return nil, fmt.Errorf("%s subpackets: %w (%d bytes)", region.name, ErrRegionTooLong, len(region.data))
		}
		out = binary.BigEndian.AppendUint16(out, uint16(len(region.data)))
		out = append(out, region.data...)
	}
	out = append(out, s.Hash2[:]...)
	for _, m := range s.Integers {
		out = binary.BigEndian.AppendUint16(out, m.BitLength)
		out = append(out, m.Value...)
	}
	return out, nil
}
