package idp

import (
	"context"

	"github.com/dgellow/login-front/internal/authurl"
)

const (
	linkedInAuthURL = "https://www.linkedin.com/uas/oauth2/authorization"

	// LinkedInDefaultState is sent when the page has no continuation target.
	// LinkedIn rejects authorization requests without a state.
	LinkedInDefaultState = "oauthState"
)

// LinkedInInitiator starts LinkedIn's OAuth2 authorization code flow.
type LinkedInInitiator struct {
	authURL string
}

// NewLinkedInInitiator creates a LinkedIn initiator.
func NewLinkedInInitiator() *LinkedInInitiator {
	return &LinkedInInitiator{authURL: linkedInAuthURL}
}

// Provider returns LinkedIn.
func (i *LinkedInInitiator) Provider() Provider {
	return LinkedIn
}

// Request builds the LinkedIn authorization request. The fixed state is a
// fallback; a continuation target on the page replaces it.
func (i *LinkedInInitiator) Request(page Page, clientID string) AuthorizationRequest {
	return AuthorizationRequest{
		BaseURL: i.authURL,
		Params: authurl.Params{
			{Key: "client_id", Value: clientID},
			{Key: "response_type", Value: "code"},
			{Key: "scope", Value: "r_emailaddress r_basicprofile"},
			{Key: "redirect_uri", Value: page.URL("callbacks/linkedin")},
			{Key: authurl.StateParam, Value: LinkedInDefaultState},
		},
	}
}

// Start redirects the page to LinkedIn.
func (i *LinkedInInitiator) Start(ctx context.Context, page Page, clientID string) error {
	return Login(ctx, i, page, clientID)
}
