// Package sources holds the catalog of websites medfeed scrapes.
package sources

import (
	"fmt"

	"github.com/IshaanNene/medfeed/internal/types"
)

// Registry is a read-only, validated set of sources.
type Registry struct {
	sources []types.SourceSpec
	byName  map[string]int
}

// NewRegistry validates specs and builds a registry. Source names must be unique.
func NewRegistry(specs []types.SourceSpec) (*Registry, error) {
	r := &Registry{
		sources: make([]types.SourceSpec, 0, len(specs)),
		byName:  make(map[string]int, len(specs)),
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", types.ErrInvalidSource, s.Name)
		}
		r.byName[s.Name] = len(r.sources)
		r.sources = append(r.sources, s)
	}
	return r, nil
}

// Default returns the registry for the built-in catalog.
func Default() *Registry {
	r, err := NewRegistry(Builtin())
	if err != nil {
		panic(fmt.Sprintf("sources: built-in catalog is invalid: %v", err))
	}
	return r
}

// Open returns the registry for path, or the built-in one when path is empty.
func Open(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	specs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(specs)
}

// All returns every source in catalog order.
func (r *Registry) All() []types.SourceSpec {
	out := make([]types.SourceSpec, len(r.sources))
	copy(out, r.sources)
	return out
}

// Len returns the number of sources.
func (r *Registry) Len() int { return len(r.sources) }

// Get looks a source up by name.
func (r *Registry) Get(name string) (types.SourceSpec, bool) {
	i, ok := r.byName[name]
	if !ok {
		return types.SourceSpec{}, false
	}
	return r.sources[i], true
}

// Filter returns the sources in language that match category.
func (r *Registry) Filter(category, language string) []types.SourceSpec {
	var out []types.SourceSpec
	for _, s := range r.sources {
		if s.Language == language && s.HasCategory(category) {
			out = append(out, s)
		}
	}
	return out
}

// Categories returns every category tag in first-seen order.
func (r *Registry) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range r.sources {
		for _, c := range s.Categories {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
