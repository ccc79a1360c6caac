// Package source defines the adapter contract that turns one external
// publishing platform into activity entries, plus the registry that maps a
// configuration tag to its adapter.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
)

var (
	// ErrUnknownKind is returned when no adapter is registered for a kind.
	ErrUnknownKind = errors.New("unknown source kind")
	// ErrInvalidDescriptor is returned for descriptors an adapter cannot use at all.
	ErrInvalidDescriptor = errors.New("invalid source descriptor")
)

// Descriptor identifies one configured source.
type Descriptor struct {
	Kind string `mapstructure:"kind"`
	// URL is the site root for web sources.
	URL string `mapstructure:"url"`
	// User is the account name for commit-history sources.
	User string `mapstructure:"user"`
}

// Adapter fetches every entry a source exposes. Failures on single resources
// are logged and skipped; an error is returned only when the descriptor itself
// is unusable.
type Adapter interface {
	Kind() string
	Fetch(ctx context.Context, desc Descriptor) ([]activity.Entry, error)
}

// Factory builds a fresh adapter. Adapters keep per-run state, so each run
// asks for a new one.
type Factory func() Adapter

// Registry maps kinds to adapter factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds kind to factory, replacing any previous binding.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Build returns a new adapter for kind.
func (r *Registry) Build(kind string) (Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return factory(), nil
}

// Kinds lists registered kinds in lexical order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
