package provider

import (
	"fmt"

	"github.com/jay-neo/cinebase/internal/auth"
)

// Registry holds all configured OAuth providers and allows
// lookup by provider name. It performs no auth logic itself.
type Registry struct {
	providers map[auth.Provider]OAuthProvider
}

// NewRegistry registers the given OAuth providers by name.
// A later provider with the same name replaces an earlier one.
func NewRegistry(list ...OAuthProvider) *Registry {
	m := make(map[auth.Provider]OAuthProvider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get resolves a path segment to a configured provider. Names outside the
// OAuth set and providers left unconfigured both fail.
func (r *Registry) Get(name string) (OAuthProvider, error) {
	id, ok := auth.ParseOAuthProvider(name)
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", name)
	}
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("oauth provider not configured: %s", name)
	}
	return p, nil
}

// Names lists the configured providers.
func (r *Registry) Names() []auth.Provider {
	names := make([]auth.Provider, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	return names
}
