// Package apt loads signed distribution indices from APT repositories.
//
// A Fetcher reads dists/<suite>/Release and its detached Release.gpg from a
// mirror (over HTTP or from a local directory), decodes them into a deb.Dist
// and checks the Packages indices it fetches afterwards against the hashes
// the Release lists.
package apt

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/etnz/debutils/deb"
	"github.com/etnz/debutils/pgp"
	"go.uber.org/zap"
)

// DefaultMaxSize bounds every file a Fetcher reads unless MaxSize says otherwise.
const DefaultMaxSize = 64 << 20

// ErrTooLarge is returned when a fetched file exceeds the Fetcher's MaxSize.
var ErrTooLarge = errors.New("apt: file exceeds size limit")

// RepoConfig defines a source APT repository.
// It supports both:
// 1. Flat Repositories: Just a URL (Suite is empty).
// 2. Standard Repositories: URL + Suite + Component + Architectures (e.g., deb http://archive.ubuntu.com/ubuntu focal main).
//
// URL is either an http(s) URL or a local directory.
type RepoConfig struct {
	URL           string   `json:"url" yaml:"url"`
	Suite         string   `json:"suite,omitempty" yaml:"suite,omitempty"`
	Component     string   `json:"component,omitempty" yaml:"component,omitempty"`
	Architectures []string `json:"architectures,omitempty" yaml:"architectures,omitempty"`
}

// distDir returns the directory holding the Release file, with a trailing slash.
func (r RepoConfig) distDir() string {
	base := r.URL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if r.Suite == "" {
		return base
	}
	return fmt.Sprintf("%sdists/%s/", base, r.Suite)
}

// baseURL returns the repository root, with a trailing slash.
func (r RepoConfig) baseURL() string {
	if strings.HasSuffix(r.URL, "/") {
		return r.URL
	}
	return r.URL + "/"
}

// indexPaths returns the candidate Packages paths for arch, relative to distDir,
// in order of preference.
func (r RepoConfig) indexPaths(arch string) []string {
	dir := ""
	if r.Suite != "" {
		dir = fmt.Sprintf("%s/binary-%s/", r.Component, arch)
	}
	return []string{dir + "Packages.gz", dir + "Packages"}
}

// Package represents the metadata for a single .deb package version, as
// listed by a Packages index.
type Package struct {
	Name         string
	Version      string
	Architecture string
	// Control is the raw stanza without the archive fields below.
	Control string

	// Filename is the absolute URL (or path) of the .deb file.
	Filename string
	Size     int64
	FileHash string // SHA256
}

// PackageIndex is an in-memory database of packages.
// It enforces uniqueness based on "Name|Version|Architecture".
type PackageIndex struct {
	packages map[string]*Package
	order    []string
}

func NewPackageIndex() *PackageIndex {
	return &PackageIndex{packages: make(map[string]*Package)}
}

// Add inserts a package into the index.
// It returns an error if a package with the same Name, Version, and Architecture already exists.
func (idx *PackageIndex) Add(p *Package) error {
	if p.Name == "" || p.Version == "" || p.Architecture == "" {
		p.Name, p.Version, p.Architecture = parseControlMetadata(p.Control)
	}
	if p.Name == "" {
		return nil
	}
	id := fmt.Sprintf("%s|%s|%s", p.Name, p.Version, p.Architecture)
	if _, exists := idx.packages[id]; exists {
		return fmt.Errorf("duplicate package: %s", id)
	}
	idx.packages[id] = p
	idx.order = append(idx.order, id)
	return nil
}

// Append merges another index into this one.
func (idx *PackageIndex) Append(other *PackageIndex) error {
	for _, id := range other.order {
		if err := idx.Add(other.packages[id]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of packages.
func (idx *PackageIndex) Len() int { return len(idx.order) }

// Packages returns the packages in insertion order.
func (idx *PackageIndex) Packages() []*Package {
	pkgs := make([]*Package, 0, len(idx.order))
	for _, id := range idx.order {
		pkgs = append(pkgs, idx.packages[id])
	}
	return pkgs
}

// Fetcher loads distributions from APT repositories.
// Decoded dists are cached by Release location; a Fetcher is safe for
// concurrent use.
type Fetcher struct {
	// Client is used for http(s) locations. nil means http.DefaultClient.
	Client *http.Client
	// MaxSize bounds every file read. 0 or less disables the bound.
	MaxSize int64
	// Logger receives progress messages. nil means no logging.
	Logger *zap.Logger

	mu    sync.Mutex
	dists map[string]*deb.Dist
}

// NewFetcher returns a Fetcher bounded by DefaultMaxSize.
func NewFetcher(logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		Client:  http.DefaultClient,
		MaxSize: DefaultMaxSize,
		Logger:  logger,
		dists:   make(map[string]*deb.Dist),
	}
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// FetchDist loads and decodes the Release and Release.gpg of r.
// It does not verify the signature: see deb.Dist.Verify.
func (f *Fetcher) FetchDist(ctx context.Context, r RepoConfig) (*deb.Dist, error) {
	releaseURL := r.distDir() + "Release"
	if d, ok := f.cached(releaseURL); ok {
		f.logger().Debug("Release served from cache", zap.String("url", releaseURL))
		return d, nil
	}

	release, err := f.get(ctx, releaseURL)
	if err != nil {
		return nil, err
	}
	signature, err := f.get(ctx, releaseURL+".gpg")
	if err != nil {
		return nil, err
	}
	d, err := deb.NewDist(release, signature)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", releaseURL, err)
	}

	issuer, _ := d.Signature.Packet.IssuerKeyID()
	created, _ := d.Signature.Packet.CreationTime()
	f.logger().Info("Fetched release",
		zap.String("url", releaseURL),
		zap.String("suite", d.Release.Suite),
		zap.Int("files", len(d.Release.Files)),
		zap.String("issuer", issuer),
		zap.Time("signed", created),
	)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dists == nil {
		f.dists = make(map[string]*deb.Dist)
	}
	if prev, ok := f.dists[releaseURL]; ok {
		return prev, nil
	}
	f.dists[releaseURL] = d
	return d, nil
}

func (f *Fetcher) cached(releaseURL string) (*deb.Dist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.dists[releaseURL]
	return d, ok
}

// FetchPackages loads the Packages index of arch, checks it against the size
// and hashes listed by d, and parses its stanzas. Relative filenames are
// rewritten to absolute locations under the repository root.
func (f *Fetcher) FetchPackages(ctx context.Context, r RepoConfig, d *deb.Dist, arch string) (*PackageIndex, error) {
	var path string
	for _, p := range r.indexPaths(arch) {
		if _, ok := d.Release.File(p); ok {
			path = p
			break
		}
	}
	if path == "" {
		return nil, fmt.Errorf("%s binary-%s: %w", r.distDir(), arch, deb.ErrNotListed)
	}

	u := r.distDir() + path
	data, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := d.Release.Check(path, data); err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gzr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u, err)
		}
		defer gzr.Close()
		data, err = io.ReadAll(gzr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u, err)
		}
	}

	idx, err := parsePackages(data, r.baseURL())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u, err)
	}
	f.logger().Info("Fetched package index",
		zap.String("url", u),
		zap.Int("packages", idx.Len()),
	)
	return idx, nil
}

// FetchIndex fetches the dist of r and the Packages index of every
// configured architecture, merged into one index.
func (f *Fetcher) FetchIndex(ctx context.Context, r RepoConfig) (*PackageIndex, error) {
	d, err := f.FetchDist(ctx, r)
	if err != nil {
		return nil, err
	}
	archs := r.Architectures
	if r.Suite == "" {
		archs = []string{""}
	} else if len(archs) == 0 {
		return nil, fmt.Errorf("architectures required for suite %s", r.Suite)
	}

	master := NewPackageIndex()
	for _, arch := range archs {
		idx, err := f.FetchPackages(ctx, r, d, arch)
		if err != nil {
			return nil, err
		}
		if err := master.Append(idx); err != nil {
			return nil, err
		}
	}
	return master, nil
}

// get reads u, from the network if it is an http(s) URL or from disk otherwise.
func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	var rc io.ReadCloser
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		client := f.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to fetch %s: status %d", u, resp.StatusCode)
		}
		rc = resp.Body
	} else {
		file, err := os.Open(strings.TrimPrefix(u, "file://"))
		if err != nil {
			return nil, err
		}
		rc = file
	}
	defer rc.Close()

	f.logger().Debug("Reading", zap.String("url", u))
	if f.MaxSize <= 0 {
		return io.ReadAll(rc)
	}
	data, err := io.ReadAll(io.LimitReader(rc, f.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}
	if int64(len(data)) > f.MaxSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", u, ErrTooLarge, f.MaxSize)
	}
	return data, nil
}

// Verify fetches the dist of r and verifies its signature with k.
func (f *Fetcher) Verify(ctx context.Context, r RepoConfig, k *pgp.Keyring) (*deb.Dist, *pgp.Signer, error) {
	d, err := f.FetchDist(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	signer, err := d.Verify(k)
	if err != nil {
		return d, nil, err
	}
	f.logger().Info("Verified release",
		zap.String("suite", d.Release.Suite),
		zap.String("signer", signer.Fingerprint),
	)
	return d, signer, nil
}

// parsePackages splits a Packages index into stanzas.
func parsePackages(data []byte, baseURL string) (*PackageIndex, error) {
	idx := NewPackageIndex()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	// Increase buffer for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var currentStanza strings.Builder
	flush := func() error {
		if currentStanza.Len() == 0 {
			return nil
		}
		p := parseStanza(currentStanza.String())
		// Rewrite relative filename to absolute URL
		if p.Filename != "" && !strings.HasPrefix(p.Filename, "http") {
			p.Filename = baseURL + p.Filename
		}
		currentStanza.Reset()
		return idx.Add(p)
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		currentStanza.WriteString(line + "\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return idx, nil
}

func parseControlMetadata(control string) (string, string, string) {
	var p, v, a string
	scanner := bufio.NewScanner(strings.NewReader(control))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Package: ") {
			p = strings.TrimSpace(strings.TrimPrefix(line, "Package: "))
		} else if strings.HasPrefix(line, "Version: ") {
			v = strings.TrimSpace(strings.TrimPrefix(line, "Version: "))
		} else if strings.HasPrefix(line, "Architecture: ") {
			a = strings.TrimSpace(strings.TrimPrefix(line, "Architecture: "))
		}
	}
	return p, v, a
}

func parseStanza(stanza string) *Package {
	p := &Package{}
	var controlLines []string
	scanner := bufio.NewScanner(strings.NewReader(stanza))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Filename: ") {
			p.Filename = strings.TrimSpace(strings.TrimPrefix(line, "Filename: "))
		} else if strings.HasPrefix(line, "Size: ") {
			fmt.Sscanf(strings.TrimPrefix(line, "Size: "), "%d", &p.Size)
		} else if strings.HasPrefix(line, "SHA256: ") {
			p.FileHash = strings.TrimSpace(strings.TrimPrefix(line, "SHA256: "))
		} else {
			controlLines = append(controlLines, line)
		}
	}
	p.Control = strings.Join(controlLines, "\n") + "\n"
	p.Name, p.Version, p.Architecture = parseControlMetadata(p.Control)
	return p
}
