// Package universe supplies the list of tradable assets to the selector.
package universe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rotator/internal/store"
)

// Provider returns the assets eligible for selection.
type Provider interface {
	ListAssets(ctx context.Context) ([]string, error)
}

// Compile-time interface checks.
var _ Provider = Static(nil)
var _ Provider = (*FromStore)(nil)

// Static is a fixed, ordered list of symbols.
type Static []string

// ListAssets returns the symbols upper-cased with duplicates removed, in
// their configured order.
func (s Static) ListAssets(_ context.Context) ([]string, error) {
	seen := make(map[string]bool, len(s))
	out := make([]string, 0, len(s))
	for _, sym := range s {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out, nil
}

// FromStore lists every symbol present in a price store.
type FromStore struct {
	Lister store.SymbolLister
}

// ListAssets returns the stored symbols in ascending order.
func (f *FromStore) ListAssets(ctx context.Context) ([]string, error) {
	syms, err := f.Lister.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stored symbols: %w", err)
	}
	out := append([]string(nil), syms...)
	sort.Strings(out)
	return out, nil
}

// New returns the provider for source: "static" uses symbols, "store" uses
// lister.
func New(source string, symbols []string, lister store.SymbolLister) (Provider, error) {
	switch source {
	case "", "static":
		return Static(symbols), nil
	case "store":
		if lister == nil {
			return nil, fmt.Errorf("universe source %q needs a price store", source)
		}
		return &FromStore{Lister: lister}, nil
	default:
		return nil, fmt.Errorf("unknown universe source %q", source)
	}
}

// ParseList splits a comma-separated symbol list into a Static universe.
func ParseList(list string) Static {
	return Static(strings.Split(list, ","))
}
