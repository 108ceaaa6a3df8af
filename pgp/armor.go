package pgp

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"
)

const (
	armorBegin = "-----BEGIN PGP SIGNATURE-----"
	armorEnd   = "-----END PGP SIGNATURE-----"

	// armorLineWidth is the number of base64 characters per body line on encode.
	armorLineWidth = 64
)

// Headers is an ordered map of armor header lines.
// Keys keep their first insertion position; setting an existing key replaces its value.
// The zero value is ready to use.
type Headers struct {
	keys   []string
	values map[string]string
}

// Set stores value under key.
func (h *Headers) Set(key, value string) {
	if h.values == nil {
		h.values = make(map[string]string)
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Get returns the value stored under key.
func (h Headers) Get(key string) (string, bool) {
	v, ok := h.values[key]
	return v, ok
}

// Keys returns the header keys in order.
func (h Headers) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Len returns the number of distinct keys.
func (h Headers) Len() int { return len(h.keys) }

// ArmoredMessage is the decoded form of an ASCII-armored PGP signature block.
type ArmoredMessage struct {
	Headers Headers
	// Payload is the binary packet stream carried by the base64 body.
	Payload []byte
	// Checksum is the CRC-24 declared by the checksum line. After a successful
	// decode it always equals CRC24(Payload).
	Checksum uint32
}

// NewArmoredMessage returns a message carrying payload, with its checksum computed.
func NewArmoredMessage(payload []byte, headers Headers) *ArmoredMessage {
	return &ArmoredMessage{
		Headers:  headers,
		Payload:  payload,
		Checksum: CRC24(payload),
	}
}

// DecodeArmor parses an ASCII-armored signature block.
//
// The block must start with the BEGIN line and end with the END line,
// optionally followed by a single newline. Header lines have the form
// "key: value" and are separated from the base64 body by an empty line. The
// last body line is the "=" checksum line.
func DecodeArmor(data []byte) (*ArmoredMessage, error) {
	const stage = "armor"
	text := string(data)

	if !strings.HasPrefix(text, armorBegin+"\n") {
		return nil, errorf(ErrFraming, stage, 0, "missing %q line", armorBegin)
	}
	text = strings.TrimSuffix(text, "\n")
	if len(text) < len(armorBegin)+len(armorEnd)+2 || !strings.HasSuffix(text, "\n"+armorEnd) {
		return nil, errorf(ErrFraming, stage, len(data), "missing %q line", armorEnd)
	}
	inner := text[len(armorBegin)+1 : len(text)-len(armorEnd)-1]
	lines := strings.Split(inner, "\n")

	msg := &ArmoredMessage{}
	offset := len(armorBegin) + 1
	i := 0
	for ; i < len(lines) && lines[i] != ""; i++ {
		key, value, ok := strings.Cut(lines[i], ": ")
		if !ok || key == "" || strings.ContainsAny(key, ": \t") {
			return nil, errorf(ErrFraming, stage, offset, "malformed header line %q", lines[i])
		}
		msg.Headers.Set(key, value)
		offset += len(lines[i]) + 1
	}
	if i == len(lines) {
		return nil, errorf(ErrFraming, stage, offset, "missing blank line after headers")
	}
	offset++
	body := lines[i+1:]
	if len(body) == 0 {
		return nil, errorf(ErrFraming, stage, offset, "missing checksum line")
	}

	sumLine := body[len(body)-1]
	if !strings.HasPrefix(sumLine, "=") || len(sumLine) != 5 {
		return nil, errorf(ErrFraming, stage, offset, "malformed checksum line %q", sumLine)
	}
	sum, err := base64.StdEncoding.DecodeString(sumLine[1:])
	if err != nil {
		return nil, errorf(ErrFraming, stage, offset, "checksum line: %v", err)
	}
	msg.Checksum = uint32(BytesToUint(sum))

	encoded := strings.Join(strings.Fields(strings.Join(body[:len(body)-1], "")), "")
	msg.Payload, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errorf(ErrFraming, stage, offset, "body: %v", err)
	}

	if got := CRC24(msg.Payload); got != msg.Checksum {
		return nil, errorf(ErrChecksumMismatch, stage, offset, "declared %06X, computed %06X", msg.Checksum, got)
	}
	return msg, nil
}

// Bytes returns the armored encoding of m.
func (m *ArmoredMessage) Bytes() []byte {
	var b bytes.Buffer
	m.WriteTo(&b)
	return b.Bytes()
}

// String returns the armored encoding of m.
func (m *ArmoredMessage) String() string { return string(m.Bytes()) }

// WriteTo writes the armored encoding of m to w.
// The checksum line is computed from the payload.
// This satisfies the io.WriterTo interface.
func (m *ArmoredMessage) WriteTo(w io.Writer) (int64, error) {
	var b bytes.Buffer
	b.WriteString(armorBegin + "\n")
	for _, k := range m.Headers.keys {
		b.WriteString(k + ": " + m.Headers.values[k] + "\n")
	}
	b.WriteString("\n")

	encoded := base64.StdEncoding.EncodeToString(m.Payload)
	for len(encoded) > armorLineWidth {
		b.WriteString(encoded[:armorLineWidth] + "\n")
		encoded = encoded[armorLineWidth:]
	}
	if encoded != "" {
		b.WriteString(encoded + "\n")
	}

	sum := padLeft(UintToBytes(uint64(CRC24(m.Payload))), 3)
	b.WriteString("=" + base64.StdEncoding.EncodeToString(sum) + "\n")
	b.WriteString(armorEnd + "\n")

	n, err := w.Write(b.Bytes())
	return int64(n), err
}
