// Package strategy defines the Selector interface for monthly asset
// selection, a Registry for managing selector implementations, and the
// Backtester that drives them over a date range.
package strategy

import (
	"context"
	"sort"
	"time"

	"rotator/internal/domain"
)

// Selector is the interface that all selection strategies must implement.
type Selector interface {
	// Name returns the unique identifier for this selector.
	Name() string

	// Select picks the assets to hold after asOf. An empty Selection means
	// the portfolio stays in cash; an error is treated the same way by the
	// Backtester.
	Select(ctx context.Context, asOf time.Time) (domain.Selection, error)
}

// Registry holds a named collection of selectors for lookup and enumeration.
type Registry struct {
	selectors map[string]Selector
}

// NewRegistry creates an empty selector Registry.
func NewRegistry() *Registry {
	return &Registry{
		selectors: make(map[string]Selector),
	}
}

// Register adds a selector to the registry, keyed by its Name().
func (r *Registry) Register(s Selector) {
	r.selectors[s.Name()] = s
}

// Get retrieves a selector by name. The second return value indicates
// whether the selector was found.
func (r *Registry) Get(name string) (Selector, bool) {
	s, ok := r.selectors[name]
	return s, ok
}

// List returns a sorted slice of all registered selector names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.selectors))
	for name := range r.selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
