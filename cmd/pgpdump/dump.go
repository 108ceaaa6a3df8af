package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/etnz/debutils/pgp"
	"go.yaml.in/yaml/v3"
)

// Internal DTOs for the dump output.
type headerDump struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type armorDump struct {
	Headers     []headerDump `yaml:"headers,omitempty"`
	PayloadSize int          `yaml:"payload_size"`
	Checksum    string       `yaml:"checksum"`
}

type packetDump struct {
	Tag        string `yaml:"tag"`
	Length     uint32 `yaml:"length"`
	HeaderSize int    `yaml:"header_size"`
}

type subpacketDump struct {
	Type     string `yaml:"type"`
	Code     uint8  `yaml:"code"`
	Critical bool   `yaml:"critical,omitempty"`
	Length   int    `yaml:"length"`
	Value    string `yaml:"value"`
}

type mpiDump struct {
	Bits  uint16 `yaml:"bits"`
	Value string `yaml:"value"`
}

type signerDump struct {
	KeyID       string   `yaml:"key_id"`
	Fingerprint string   `yaml:"fingerprint"`
	UserIDs     []string `yaml:"user_ids,omitempty"`
}

type signatureDump struct {
	Version       uint8           `yaml:"version"`
	Type          string          `yaml:"type"`
	KeyAlgorithm  string          `yaml:"key_algorithm"`
	HashAlgorithm string          `yaml:"hash_algorithm"`
	Created       string          `yaml:"created,omitempty"`
	Expires       string          `yaml:"expires,omitempty"`
	Issuer        string          `yaml:"issuer,omitempty"`
	Fingerprint   string          `yaml:"fingerprint,omitempty"`
	Hashed        []subpacketDump `yaml:"hashed"`
	Unhashed      []subpacketDump `yaml:"unhashed"`
	Hash2         string          `yaml:"hash2"`
	Integers      []mpiDump       `yaml:"integers"`
}

type fileDump struct {
	File      string        `yaml:"file"`
	Armor     armorDump     `yaml:"armor"`
	Packet    packetDump    `yaml:"packet"`
	Signature signatureDump `yaml:"signature"`
	Verified  *signerDump   `yaml:"verified,omitempty"`
}

// newFileDump maps a decoded signature to its dump.
func newFileDump(name string, sig *pgp.Signature) *fileDump {
	d := &fileDump{
		File: name,
		Armor: armorDump{
			PayloadSize: len(sig.Armor.Payload),
			Checksum:    fmt.Sprintf("%06X", sig.Armor.Checksum),
		},
		Packet: packetDump{
			Tag:        sig.Header.Tag.String(),
			Length:     sig.Header.Length,
			HeaderSize: sig.Header.Size,
		},
	}
	h := sig.Headers()
	for _, k := range h.Keys() {
		v, _ := h.Get(k)
		d.Armor.Headers = append(d.Armor.Headers, headerDump{Key: k, Value: v})
	}

	p := sig.Packet
	d.Signature = signatureDump{
		Version:       p.Version,
		Type:          p.Type.String(),
		KeyAlgorithm:  p.KeyAlgorithm.String(),
		HashAlgorithm: p.HashAlgorithm.String(),
		Hashed:        dumpSubpackets(p.Hashed),
		Unhashed:      dumpSubpackets(p.Unhashed),
		Hash2:         hex.EncodeToString(p.Hash2[:]),
	}
	if t, ok := p.CreationTime(); ok {
		d.Signature.Created = t.UTC().Format(time.RFC3339)
	}
	if t, ok := p.ExpirationTime(); ok {
		d.Signature.Expires = t.UTC().Format(time.RFC3339)
	}
	d.Signature.Issuer, _ = p.IssuerKeyID()
	d.Signature.Fingerprint, _ = p.IssuerFingerprint()
	for _, m := range p.Integers {
		d.Signature.Integers = append(d.Signature.Integers, mpiDump{Bits: m.BitLength, Value: hex.EncodeToString(m.Value)})
	}
	return d
}

func dumpSubpackets(s pgp.Subpackets) []subpacketDump {
	var out []subpacketDump
	for _, sp := range s.All() {
		sd := subpacketDump{
			Type:     sp.Type.String(),
			Code:     uint8(sp.Type),
			Critical: sp.Critical,
			Length:   sp.Length,
		}
		switch v := sp.Value().(type) {
		case time.Time:
			sd.Value = v.UTC().Format(time.RFC3339)
		case string:
			sd.Value = v
		case []byte:
			if sp.Type == pgp.SubSignersUserID || sp.Type == pgp.SubPolicyURI {
				sd.Value = string(v)
			} else {
				sd.Value = hex.EncodeToString(v)
			}
		}
		out = append(out, sd)
	}
	return out
}

var textTemplate = template.Must(template.New("dump").Funcs(template.FuncMap{
	"short": func(s string) string {
		if len(s) > 32 {
			return s[:32] + "..."
		}
		return s
	},
}).Parse(`{{.File}}:
  armor: {{len .Armor.Headers}} header(s), payload {{.Armor.PayloadSize}} bytes, crc24 {{.Armor.Checksum}}
{{- range .Armor.Headers}}
    {{.Key}}: {{.Value}}
{{- end}}
  packet: {{.Packet.Tag}}, length {{.Packet.Length}}, header {{.Packet.HeaderSize}} bytes
{{- with .Signature}}
  version {{.Version}}, {{.Type}}, {{.KeyAlgorithm}}, {{.HashAlgorithm}}
{{- if .Created}}
  created {{.Created}}
{{- end}}
{{- if .Expires}}
  expires {{.Expires}}
{{- end}}
{{- if .Issuer}}
  issuer {{.Issuer}}
{{- end}}
  hashed subpackets:
{{- range .Hashed}}
    {{.Type}} ({{.Code}}{{if .Critical}}, critical{{end}}): {{.Value}}
{{- end}}
  unhashed subpackets:
{{- range .Unhashed}}
    {{.Type}} ({{.Code}}{{if .Critical}}, critical{{end}}): {{.Value}}
{{- end}}
  hash2: {{.Hash2}}
  integers:
{{- range $i, $m := .Integers}}
    [{{$i}}] {{$m.Bits}} bits {{short $m.Value}}
{{- end}}
{{- end}}
{{- with .Verified}}
  verified: {{.Fingerprint}}{{range .UserIDs}} "{{.}}"{{end}}
{{- end}}
`))

// writeDumps writes dumps to w in the given format: "text" or "yaml".
func writeDumps(w io.Writer, format string, dumps []*fileDump) error {
	switch strings.ToLower(format) {
	case "text":
		for _, d := range dumps {
			if err := textTemplate.Execute(w, d); err != nil {
				return err
			}
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		for _, d := range dumps {
			if err := enc.Encode(d); err != nil {
				return err
			}
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q, must be 'text' or 'yaml'", format)
	}
}
