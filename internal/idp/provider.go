package idp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgellow/login-front/internal/authurl"
	"github.com/dgellow/login-front/internal/log"
	"github.com/dgellow/login-front/internal/urlutil"
)

// ErrUnknownProvider is returned when a provider name is not one of the
// supported identity providers.
var ErrUnknownProvider = errors.New("unknown provider")

// Provider identifies one of the supported identity providers.
type Provider int

const (
	Google Provider = iota + 1
	Facebook
	GitHub
	LinkedIn
	SAML
)

var providerNames = map[Provider]string{
	Google:   "google",
	Facebook: "facebook",
	GitHub:   "github",
	LinkedIn: "linkedin",
	SAML:     "saml",
}

// AllProviders lists every supported provider in display order.
func AllProviders() []Provider {
	return []Provider{Google, Facebook, GitHub, LinkedIn, SAML}
}

// String returns the lowercase provider name used in routes and config.
func (p Provider) String() string {
	if name, ok := providerNames[p]; ok {
		return name
	}
	return fmt.Sprintf("provider(%d)", int(p))
}

// ParseProvider maps a provider name to its Provider value.
func ParseProvider(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for p, n := range providerNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Navigator sends the browser to a new location. Navigation is final: once
// it succeeds the current page is gone.
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}

// Page is the page a login was started from.
type Page struct {
	// BaseURL is this application's own origin, used for callback URLs.
	BaseURL string
	// Query is the page's raw query string, possibly carrying "next".
	Query     string
	Navigator Navigator
}

// URL returns path resolved under the page's base URL.
func (p Page) URL(path string) string {
	joined, err := urlutil.JoinPath(p.BaseURL, path)
	if err != nil {
		return strings.TrimRight(p.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	return joined
}

// AuthorizationRequest is the endpoint and parameters of one login redirect.
type AuthorizationRequest struct {
	BaseURL string
	Params  authurl.Params
	// IgnoreNext keeps the page's continuation target out of the request.
	IgnoreNext bool
}

// URL renders the request for a page with the given raw query.
func (r AuthorizationRequest) URL(pageQuery string) string {
	var opts []authurl.Option
	if r.IgnoreNext {
		opts = append(opts, authurl.WithoutContinuation())
	}
	return authurl.Build(r.BaseURL, r.Params, pageQuery, opts...)
}

// Starter begins a login with a provider. identifier is the client or
// application id registered with the provider, or the SAML href.
type Starter interface {
	Start(ctx context.Context, page Page, identifier string) error
}

// Initiator is a provider whose login is a single redirect.
type Initiator interface {
	Starter
	Provider() Provider
	Request(page Page, identifier string) AuthorizationRequest
}

// Login builds the initiator's authorization URL and navigates to it.
func Login(ctx context.Context, initiator Initiator, page Page, identifier string) error {
	target := initiator.Request(page, identifier).URL(page.Query)

	log.LogDebugWithFields("idp", "Redirecting to identity provider", map[string]any{
		"provider": initiator.Provider().String(),
		"target":   target,
	})

	if err := page.Navigator.Navigate(ctx, target); err != nil {
		return fmt.Errorf("navigating to %s: %w", initiator.Provider(), err)
	}
	return nil
}
