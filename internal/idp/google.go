package idp

import (
	"context"

	"github.com/dgellow/login-front/internal/authurl"
	"golang.org/x/oauth2/google"
)

// GoogleInitiator starts Google's OAuth2 authorization code flow.
type GoogleInitiator struct {
	authURL string
}

// NewGoogleInitiator creates a Google initiator using Google's published
// authorization endpoint.
func NewGoogleInitiator() *GoogleInitiator {
	return &GoogleInitiator{authURL: google.Endpoint.AuthURL}
}

// Provider returns Google.
func (i *GoogleInitiator) Provider() Provider {
	return Google
}

// Request asks for an authorization code with email scope, returned to
// {baseURL}/callbacks/google.
func (i *GoogleInitiator) Request(page Page, clientID string) AuthorizationRequest {
	return AuthorizationRequest{
		BaseURL: i.authURL,
		Params: authurl.Params{
			{Key: "response_type", Value: "code"},
			{Key: "client_id", Value: clientID},
			{Key: "scope", Value: "email"},
			{Key: "redirect_uri", Value: page.URL("callbacks/google")},
		},
	}
}

// Start redirects the page to Google.
func (i *GoogleInitiator) Start(ctx context.Context, page Page, clientID string) error {
	return Login(ctx, i, page, clientID)
}
