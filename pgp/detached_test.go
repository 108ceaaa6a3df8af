package pgp

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadSignature(t *testing.T) {
	data := readFixture(t, "Release.gpg")
	sig, err := ReadSignature(data)
	if err != nil {
		t.Fatalf("ReadSignature failed: %v", err)
	}
	if c, _ := sig.Headers().Get("Comment"); c != "Debutils test archive" {
		t.Errorf("unexpected Comment %q", c)
	}
	if sig.Header.Length != 307 {
		t.Errorf("unexpected packet length %d", sig.Header.Length)
	}
	if id, _ := sig.Packet.IssuerKeyID(); id != "87D1E6252CF8FB05" {
		t.Errorf("unexpected issuer %s", id)
	}
	if !bytes.Equal(sig.Bytes(), data) {
		t.Errorf("armored output differs from input")
	}
}

func TestReadSignatureErrors(t *testing.T) {
	payload := fixturePayload(t, "Release.gpg")
	trailing := append(append([]byte{}, payload...), 0xB4, 0x01, 'x')

	tests := []struct {
		name    string
		payload []byte
		want    error
		kind    Kind
	}{
		{"empty payload", nil, ErrFraming, Malformed},
		{"trailing packet", trailing, ErrFraming, Malformed},
		{"user id packet", []byte{0xB4, 0x03, 'b', 'o', 'b'}, ErrUnsupportedType, Malformed},
		{"invalid tag", []byte{0x02, 0x00}, ErrInvalidTag, Malformed},
		{"truncated body", payload[:len(payload)-10], ErrFraming, Malformed},
		{"partial body length", []byte{0xC2, 0xE1, 0x04, 0x00}, ErrUnsupported, Unsupported},
	}
	for _, tt := range tests {
		armored := NewArmoredMessage(tt.payload, Headers{}).Bytes()
		sig, err := ReadSignature(armored)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
		if KindOf(err) != tt.kind {
			t.Errorf("%s: expected kind %s, got %s", tt.name, tt.kind, KindOf(err))
		}
		if sig != nil {
			t.Errorf("%s: expected no partial result", tt.name)
		}
	}
}

func TestLoadSignatureBound(t *testing.T) {
	data := readFixture(t, "Release.dsa.gpg")
	if _, err := LoadSignature(bytes.NewReader(data), int64(len(data))); err != nil {
		t.Errorf("LoadSignature at the exact bound failed: %v", err)
	}
	if _, err := LoadSignature(bytes.NewReader(data), 0); err != nil {
		t.Errorf("LoadSignature without a bound failed: %v", err)
	}
	if _, err := LoadSignature(bytes.NewReader(data), int64(len(data))-1); err == nil {
		t.Errorf("expected an error above the bound")
	}
}
