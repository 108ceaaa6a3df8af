package manifest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/debutils/apt"
	"go.uber.org/multierr"
)

// ErrExpired is returned when a Release is past its Valid-Until date.
var ErrExpired = errors.New("release expired")

// Check verifies every source: it fetches the Release and Release.gpg,
// decodes the signature, verifies it against the trusted keys, rejects
// expired Releases and, when asked, checks the Packages indices.
//
// A failing source does not stop the others. The returned error combines
// every source failure.
func (m *Manifest) Check(ctx context.Context, f *apt.Fetcher, l Listener) error {
	if l == nil {
		l = func(fmt.Stringer) {}
	}
	if m.engine == nil {
		m.engine = newTemplateEngine(m.Defines)
	}

	var errs error
	for i := range m.Sources {
		s := &m.Sources[i]
		if s.engine == nil {
			s.engine = m.engine.sub(s.Defines)
		}
		if err := m.checkSource(ctx, f, s, l); err != nil {
			l(EventSourceFailed{Source: s.Name, Error: err.Error()})
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errs
}

func (m *Manifest) checkSource(ctx context.Context, f *apt.Fetcher, s *Source, l Listener) error {
	r, err := s.RepoConfig()
	if err != nil {
		return err
	}
	keyring, err := m.loadKeyring(s.engine, append(append([]string(nil), m.Keyrings...), s.Keyrings...))
	if err != nil {
		return err
	}

	d, err := f.FetchDist(ctx, r)
	if err != nil {
		return err
	}
	l(EventDistFetched{Source: s.Name, URL: r.URL, Suite: d.Release.Suite, Files: len(d.Release.Files)})

	sig := d.Signature.Packet
	decoded := EventSignatureDecoded{
		Source:        s.Name,
		Type:          sig.Type.String(),
		KeyAlgorithm:  sig.KeyAlgorithm.String(),
		HashAlgorithm: sig.HashAlgorithm.String(),
	}
	decoded.Issuer, _ = sig.IssuerKeyID()
	decoded.Created, _ = sig.CreationTime()
	if h := d.Signature.Headers(); h.Len() > 0 {
		decoded.Headers = make(map[string]string)
		for _, k := range h.Keys() {
			decoded.Headers[k], _ = h.Get(k)
		}
	}
	l(decoded)

	signer, err := d.Verify(keyring)
	if err != nil {
		return err
	}
	l(EventSignatureVerified{Source: s.Name, KeyID: signer.KeyID, Fingerprint: signer.Fingerprint, UserIDs: signer.UserIDs})

	if vu := d.Release.ValidUntil; !vu.IsZero() && timeNow().After(vu) {
		return fmt.Errorf("%w on %s", ErrExpired, vu.Format(time.RFC1123))
	}

	if !s.Packages {
		return nil
	}
	archs := r.Architectures
	if r.Suite == "" {
		archs = []string{""}
	}
	for _, arch := range archs {
		idx, err := f.FetchPackages(ctx, r, d, arch)
		if err != nil {
			return err
		}
		l(EventIndexChecked{Source: s.Name, Architecture: arch, Packages: idx.Len()})
	}
	return nil
}

// timeNow is replaced in tests.
var timeNow = time.Now

// Trusted returns the key ids trusted by the manifest-wide keyrings.
func (m *Manifest) Trusted() ([]string, error) {
	if m.engine == nil {
		m.engine = newTemplateEngine(m.Defines)
	}
	k, err := m.loadKeyring(m.engine, m.Keyrings)
	if err != nil {
		return nil, err
	}
	return k.KeyIDs(), nil
}
