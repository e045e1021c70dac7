package idp

import (
	"context"

	"github.com/dgellow/login-front/internal/authurl"
)

// SAMLInitiator sends the browser to this application's own SAML initiation
// endpoint. The server behind {baseURL}/saml owns the SAML exchange and any
// continuation handling, so "next" is not forwarded.
type SAMLInitiator struct{}

// NewSAMLInitiator creates a SAML initiator.
func NewSAMLInitiator() *SAMLInitiator {
	return &SAMLInitiator{}
}

// Provider returns SAML.
func (i *SAMLInitiator) Provider() Provider {
	return SAML
}

// Request targets {baseURL}/saml with the identity provider's href.
func (i *SAMLInitiator) Request(page Page, href string) AuthorizationRequest {
	return AuthorizationRequest{
		BaseURL: page.URL("saml"),
		Params: authurl.Params{
			{Key: "href", Value: href},
		},
		IgnoreNext: true,
	}
}

// Start redirects the page to the SAML initiation endpoint.
func (i *SAMLInitiator) Start(ctx context.Context, page Page, href string) error {
	return Login(ctx, i, page, href)
}
