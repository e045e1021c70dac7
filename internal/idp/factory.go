package idp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgellow/login-front/internal/config"
)

// ErrProviderNotRegistered is returned for providers the registry has no
// entry for.
var ErrProviderNotRegistered = errors.New("provider not registered")

// Registration binds a provider to its starter and identifier.
type Registration struct {
	Provider   Provider
	Identifier string
	Starter    Starter
}

// Registry dispatches logins by provider.
type Registry struct {
	mu      sync.RWMutex
	entries map[Provider]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Provider]Registration)}
}

// Register adds a provider. Registering the same provider twice is an error.
func (r *Registry) Register(provider Provider, identifier string, starter Starter) error {
	if _, ok := providerNames[provider]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownProvider, provider)
	}
	if starter == nil {
		return fmt.Errorf("provider %s: starter is required", provider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[provider]; exists {
		return fmt.Errorf("provider %s already registered", provider)
	}
	r.entries[provider] = Registration{
		Provider:   provider,
		Identifier: identifier,
		Starter:    starter,
	}
	return nil
}

// Lookup returns the registration for provider.
func (r *Registry) Lookup(provider Provider) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[provider]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %s", ErrProviderNotRegistered, provider)
	}
	return reg, nil
}

// Enabled lists registered providers in display order.
func (r *Registry) Enabled() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var enabled []Provider
	for _, p := range AllProviders() {
		if _, ok := r.entries[p]; ok {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// Start begins a login with provider from page. A non-empty identifier
// replaces the registered one; SAML buttons use it to pass their href.
func (r *Registry) Start(ctx context.Context, provider Provider, page Page, identifier string) error {
	reg, err := r.Lookup(provider)
	if err != nil {
		return err
	}
	if identifier == "" {
		identifier = reg.Identifier
	}
	return reg.Starter.Start(ctx, page, identifier)
}

// NewRegistryFromConfig registers every provider that has an identifier in
// cfg. fb is only required when Facebook is configured.
func NewRegistryFromConfig(cfg config.ProvidersConfig, fb FacebookSDK, fbOpts ...FacebookOption) (*Registry, error) {
	r := NewRegistry()

	if cfg.Google != nil && cfg.Google.ClientID != "" {
		if err := r.Register(Google, cfg.Google.ClientID, NewGoogleInitiator()); err != nil {
			return nil, err
		}
	}

	if cfg.Facebook != nil && cfg.Facebook.AppID != "" {
		if fb == nil {
			return nil, fmt.Errorf("facebook is configured but no SDK was provided")
		}
		opts := append([]FacebookOption{WithFacebookAPIVersion(cfg.Facebook.APIVersion)}, fbOpts...)
		if err := r.Register(Facebook, cfg.Facebook.AppID, NewFacebookAdapter(fb, opts...)); err != nil {
			return nil, err
		}
	}

	if cfg.GitHub != nil && cfg.GitHub.ClientID != "" {
		if err := r.Register(GitHub, cfg.GitHub.ClientID, NewGitHubInitiator()); err != nil {
			return nil, err
		}
	}

	if cfg.LinkedIn != nil && cfg.LinkedIn.ClientID != "" {
		if err := r.Register(LinkedIn, cfg.LinkedIn.ClientID, NewLinkedInInitiator()); err != nil {
			return nil, err
		}
	}

	if len(cfg.SAML) > 0 {
		if err := r.Register(SAML, "", NewSAMLInitiator()); err != nil {
			return nil, err
		}
	}

	return r, nil
}
