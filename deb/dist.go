package deb

import (
	"bytes"
	"fmt"

	"github.com/etnz/debutils/pgp"
)

// Dist is a distribution's Release file paired with its detached Release.gpg signature.
type Dist struct {
	Release   *Release
	Signature *pgp.Signature

	raw []byte
}

// NewDist parses release and decodes its armored detached signature.
func NewDist(release, signature []byte) (*Dist, error) {
	r, err := ParseRelease(release)
	if err != nil {
		return nil, fmt.Errorf("parsing Release: %w", err)
	}
	sig, err := pgp.ReadSignature(signature)
	if err != nil {
		return nil, fmt.Errorf("decoding Release.gpg: %w", err)
	}
	return &Dist{Release: r, Signature: sig, raw: release}, nil
}

// ReleaseBytes returns the Release file exactly as it was signed.
func (d *Dist) ReleaseBytes() []byte { return d.raw }

// Verify checks the Release.gpg signature over the Release bytes.
func (d *Dist) Verify(k *pgp.Keyring) (*pgp.Signer, error) {
	return k.Verify(d.Signature, bytes.NewReader(d.raw))
}
