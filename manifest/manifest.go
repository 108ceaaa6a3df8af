// Package manifest checks APT repositories described by declarative configuration files.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/debutils/apt"
	"github.com/etnz/debutils/pgp"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
)

// Load loads and parses a Manifest from the specified file path.
// It supports both JSON and YAML formats based on the file extension.
func Load(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := unmarshal(path, content, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	m.filePath = path
	m.engine = newTemplateEngine(m.Defines)

	if len(m.Sources) == 0 {
		return nil, fmt.Errorf("manifest must specify at least one source")
	}
	for i := range m.Sources {
		s := &m.Sources[i]
		if s.URL == "" {
			return nil, fmt.Errorf("source %d: missing url", i)
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("source-%d", i)
		}
		s.engine = m.engine.sub(s.Defines)
	}
	return &m, nil
}

// Manifest describes a set of repositories to check and the keys they must be signed with.
type Manifest struct {
	// Defines is a map of global variables available to templates.
	Defines map[string]string `json:"defines" yaml:"defines"`
	// Keyrings lists armored public key files trusted for every source.
	// Entries are relative to the manifest file, absolute paths or URLs.
	Keyrings []string `json:"keyrings" yaml:"keyrings"`
	// MaxSize bounds every file fetched from a source, in bytes.
	// 0 keeps apt.DefaultMaxSize.
	MaxSize int64 `json:"max_size" yaml:"max_size"`
	// Sources lists the repositories to check.
	Sources []Source `json:"sources" yaml:"sources"`

	filePath string
	engine   *templateEngine
}

// NewFetcher returns an apt.Fetcher honouring the manifest size limit.
func (m *Manifest) NewFetcher(logger *zap.Logger) *apt.Fetcher {
	f := apt.NewFetcher(logger)
	if m.MaxSize > 0 {
		f.MaxSize = m.MaxSize
	}
	return f
}

// loadKeyring reads and merges the keyring files listed in paths, rendered with e.
func (m *Manifest) loadKeyring(e *templateEngine, paths []string) (*pgp.Keyring, error) {
	k := &pgp.Keyring{}
	for i, raw := range paths {
		path, err := e.render(fmt.Sprintf("keyrings[%d]", i), raw)
		if err != nil {
			return nil, fmt.Errorf("rendering keyring path %q: %w", raw, err)
		}
		content, err := m.loadResource(path)
		if err != nil {
			return nil, err
		}
		kr, err := pgp.ReadKeyring(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("keyring %s: %w", path, err)
		}
		k.Merge(kr)
	}
	return k, nil
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return filepath.Join(filepath.Dir(m.filePath), path)
}

func (m *Manifest) loadResource(path string) ([]byte, error) {
	resolved := m.resolve(path)
	if !strings.HasPrefix(resolved, "http://") && !strings.HasPrefix(resolved, "https://") {
		content, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("reading resource %s: %w", resolved, err)
		}
		return content, nil
	}

	resp, err := http.Get(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resource %s: %w", resolved, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch resource %s: %s", resolved, resp.Status)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource body %s: %w", resolved, err)
	}
	return content, nil
}

// unmarshal parses JSON or YAML based on file extension.
func unmarshal(path string, data []byte, v interface{}) error {
	ext := strings.ToLower(filepath.Ext(path))
	r := bytes.NewReader(data)
	if ext == ".yaml" || ext == ".yml" {
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		return dec.Decode(v)
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
