package pgp

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Keyring holds trusted public keys. It is the verification extension point:
// decoding never needs it, verifying a decoded Signature does.
type Keyring struct {
	entities openpgp.EntityList
}

// Signer identifies the key that made a verified signature.
type Signer struct {
	KeyID       string   `json:"key_id" yaml:"key_id"`
	Fingerprint string   `json:"fingerprint" yaml:"fingerprint"`
	UserIDs     []string `json:"user_ids,omitempty" yaml:"user_ids,omitempty"`
}

// ReadKeyring loads ASCII-armored public keys from r.
func ReadKeyring(r io.Reader) (*Keyring, error) {
	entities, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		return nil, fmt.Errorf("pgp: reading keyring: %w", err)
	}
	return &Keyring{entities: entities}, nil
}

// Merge adds the keys of other to k.
func (k *Keyring) Merge(other *Keyring) {
	k.entities = append(k.entities, other.entities...)
}

// KeyIDs returns the ids of every primary key and subkey, as 16 uppercase hex digits.
func (k *Keyring) KeyIDs() []string {
	var ids []string
	for _, e := range k.entities {
		ids = append(ids, fmt.Sprintf("%016X", e.PrimaryKey.KeyId))
		for _, sub := range e.Subkeys {
			ids = append(ids, fmt.Sprintf("%016X", sub.PublicKey.KeyId))
		}
	}
	return ids
}

// Verify checks sig over the signed content. The signature issuer must be in
// the keyring (ErrUnknownKey otherwise); the digest and public key check are
// delegated to go-crypto.
func (k *Keyring) Verify(sig *Signature, signed io.Reader) (*Signer, error) {
	id, ok := sig.Packet.IssuerKeyID()
	if !ok {
		return nil, fmt.Errorf("pgp: signature names no issuer: %w", ErrUnknownKey)
	}
	keyID, err := strconv.ParseUint(id, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("pgp: issuer %q: %w", id, err)
	}
	if len(k.entities.KeysById(keyID)) == 0 {
		return nil, fmt.Errorf("pgp: key %s: %w", id, ErrUnknownKey)
	}

	entity, err := openpgp.CheckDetachedSignature(k.entities, signed, bytes.NewReader(sig.Armor.Payload), nil)
	if err != nil {
		return nil, fmt.Errorf("pgp: signature by %s: %w", id, err)
	}

	signer := &Signer{
		KeyID:       id,
		Fingerprint: strings.ToUpper(fmt.Sprintf("%x", entity.PrimaryKey.Fingerprint)),
	}
	for name := range entity.Identities {
		signer.UserIDs = append(signer.UserIDs, name)
	}
	sort.Strings(signer.UserIDs)
	return signer, nil
}
