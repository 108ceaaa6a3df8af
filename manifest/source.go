package manifest

import (
	"fmt"

	"github.com/etnz/debutils/apt"
)

// Source is one repository to check.
// Every string field is a template rendered with the manifest defines,
// overridden by the source's own Defines.
type Source struct {
	// Name identifies the source in events. Defaults to "source-<index>".
	Name string `json:"name" yaml:"name"`
	// Defines is a map of local variables available to templates in this source.
	Defines map[string]string `json:"defines" yaml:"defines"`

	URL           string   `json:"url" yaml:"url"`
	Suite         string   `json:"suite" yaml:"suite"`
	Component     string   `json:"component" yaml:"component"`
	Architectures []string `json:"architectures" yaml:"architectures"`

	// Keyrings lists keys trusted for this source only, in addition to the manifest keyrings.
	Keyrings []string `json:"keyrings" yaml:"keyrings"`
	// Packages also checks every architecture's Packages index against the Release hashes.
	Packages bool `json:"packages" yaml:"packages"`

	engine *templateEngine
}

// RepoConfig renders the source location.
func (s *Source) RepoConfig() (apt.RepoConfig, error) {
	var r apt.RepoConfig
	var err error
	if r.URL, err = s.engine.render(s.Name+".url", s.URL); err != nil {
		return r, fmt.Errorf("rendering url: %w", err)
	}
	if r.Suite, err = s.engine.render(s.Name+".suite", s.Suite); err != nil {
		return r, fmt.Errorf("rendering suite: %w", err)
	}
	if r.Component, err = s.engine.render(s.Name+".component", s.Component); err != nil {
		return r, fmt.Errorf("rendering component: %w", err)
	}
	for i, a := range s.Architectures {
		arch, err := s.engine.render(fmt.Sprintf("%s.architectures[%d]", s.Name, i), a)
		if err != nil {
			return r, fmt.Errorf("rendering architecture: %w", err)
		}
		r.Architectures = append(r.Architectures, arch)
	}
	return r, nil
}
