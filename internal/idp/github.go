package idp

import (
	"context"

	"github.com/dgellow/login-front/internal/authurl"
	"golang.org/x/oauth2/github"
)

// GitHubInitiator starts GitHub's OAuth flow. GitHub needs nothing but the
// client id; the callback URL is the one registered with the OAuth app.
type GitHubInitiator struct {
	authURL string
}

// NewGitHubInitiator creates a GitHub initiator.
func NewGitHubInitiator() *GitHubInitiator {
	return &GitHubInitiator{authURL: github.Endpoint.AuthURL}
}

// Provider returns GitHub.
func (i *GitHubInitiator) Provider() Provider {
	return GitHub
}

// Request builds the minimal GitHub authorization request.
func (i *GitHubInitiator) Request(_ Page, clientID string) AuthorizationRequest {
	return AuthorizationRequest{
		BaseURL: i.authURL,
		Params: authurl.Params{
			{Key: "client_id", Value: clientID},
		},
	}
}

// Start redirects the page to GitHub.
func (i *GitHubInitiator) Start(ctx context.Context, page Page, clientID string) error {
	return Login(ctx, i, page, clientID)
}
