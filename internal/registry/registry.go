// Package registry maps configured index display names to their category and
// provider symbol code.
package registry

import (
	"strings"

	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/model"
)

// Registry is an immutable lookup built once at startup.
type Registry struct {
	order  []model.IndexSpec
	byName map[string]model.IndexSpec
}

// New validates specs and builds a Registry. An empty set, a blank field or a
// duplicate display name is a configuration error.
func New(specs []model.IndexSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, errs.NewConfigurationError(nil, "no indices configured")
	}
	r := &Registry{
		order:  make([]model.IndexSpec, 0, len(specs)),
		byName: make(map[string]model.IndexSpec, len(specs)),
	}
	for i, s := range specs {
		s.DisplayName = strings.TrimSpace(s.DisplayName)
		s.SymbolCode = strings.TrimSpace(s.SymbolCode)
		if s.DisplayName == "" {
			return nil, errs.NewConfigurationError(nil, "index %d has no display name", i)
		}
		if s.SymbolCode == "" {
			return nil, errs.NewConfigurationError(nil, "index %q has no symbol code", s.DisplayName)
		}
		cat, err := model.ParseCategory(string(s.Category))
		if err != nil {
			return nil, errs.NewConfigurationError(err, "index %q", s.DisplayName)
		}
		s.Category = cat
		if _, dup := r.byName[s.DisplayName]; dup {
			return nil, errs.NewConfigurationError(nil, "duplicate index display name %q", s.DisplayName)
		}
		r.byName[s.DisplayName] = s
		r.order = append(r.order, s)
	}
	return r, nil
}

// Resolve returns the spec registered under displayName.
func (r *Registry) Resolve(displayName string) (model.IndexSpec, error) {
	s, ok := r.byName[strings.TrimSpace(displayName)]
	if !ok {
		return model.IndexSpec{}, errs.NewConfigurationError(nil, "index %q is not configured", displayName)
	}
	return s, nil
}

// All returns every spec in configured order.
func (r *Registry) All() []model.IndexSpec {
	out := make([]model.IndexSpec, len(r.order))
	copy(out, r.order)
	return out
}

// Select resolves names in the given order. An empty list selects everything.
func (r *Registry) Select(names []string) ([]model.IndexSpec, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	out := make([]model.IndexSpec, 0, len(names))
	for _, n := range names {
		s, err := r.Resolve(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Len returns the number of registered indices.
func (r *Registry) Len() int { return len(r.order) }
