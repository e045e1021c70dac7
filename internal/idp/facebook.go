package idp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgellow/login-front/internal/authurl"
	"github.com/dgellow/login-front/internal/log"
)

// DefaultFacebookAPIVersion is the Graph API version the login dialog uses
// unless configured otherwise.
const DefaultFacebookAPIVersion = "v2.4"

// FacebookAccessTokenParam carries the access token to the callback.
const FacebookAccessTokenParam = "accessToken"

// FacebookStatus is the login status reported by the SDK.
type FacebookStatus string

const (
	FacebookConnected     FacebookStatus = "connected"
	FacebookNotAuthorized FacebookStatus = "not_authorized"
	FacebookUnknown       FacebookStatus = "unknown"
)

// FacebookAuthResponse is the SDK's current auth response.
type FacebookAuthResponse struct {
	AccessToken string
	ExpiresIn   int
	UserID      string
}

// FacebookResponse is what the SDK hands to a login callback.
type FacebookResponse struct {
	Status       FacebookStatus
	AuthResponse *FacebookAuthResponse
}

// FacebookInitOptions mirror the SDK init parameters.
type FacebookInitOptions struct {
	AppID   string
	Cookie  bool
	XFBML   bool
	Version string
}

// FacebookLoginOptions mirror the SDK login parameters.
type FacebookLoginOptions struct {
	Scope []string
}

// FacebookCallback receives the outcome of one login attempt. page is the
// page the attempt completes on; its Query is the query of the page the
// attempt was started from.
type FacebookCallback func(ctx context.Context, page Page, resp FacebookResponse) error

// FacebookSDK is the callback-driven login SDK. Login may return before the
// callback runs; the callback runs at most once per Login call.
type FacebookSDK interface {
	Init(opts FacebookInitOptions)
	Login(ctx context.Context, page Page, opts FacebookLoginOptions, cb FacebookCallback) error
}

// FacebookResult is a completed login attempt.
type FacebookResult struct {
	Connected   bool
	AccessToken string
}

func facebookResult(resp FacebookResponse) FacebookResult {
	if resp.Status != FacebookConnected || resp.AuthResponse == nil {
		return FacebookResult{}
	}
	return FacebookResult{Connected: true, AccessToken: resp.AuthResponse.AccessToken}
}

// FacebookState is the state of one login attempt.
type FacebookState int

const (
	FacebookIdle FacebookState = iota
	FacebookLoggingIn
	FacebookNavigated
)

func (s FacebookState) String() string {
	switch s {
	case FacebookIdle:
		return "idle"
	case FacebookLoggingIn:
		return "logging_in"
	case FacebookNavigated:
		return "navigated"
	default:
		return "unknown"
	}
}

var errFacebookAttemptNotPending = errors.New("facebook login attempt is not pending")

type facebookAttempt struct {
	mu    sync.Mutex
	state FacebookState
}

// advance moves a pending attempt to its final state and reports whether
// the caller won the transition.
func (a *facebookAttempt) advance(to FacebookState) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != FacebookLoggingIn {
		return false
	}
	a.state = to
	return true
}

// FacebookAdapter turns the SDK's callback into the same build-and-navigate
// contract the redirect providers use.
type FacebookAdapter struct {
	sdk      FacebookSDK
	version  string
	observer func(FacebookResult)
}

// FacebookOption configures a FacebookAdapter.
type FacebookOption func(*FacebookAdapter)

// WithFacebookAPIVersion overrides the Graph API version passed to Init.
func WithFacebookAPIVersion(version string) FacebookOption {
	return func(a *FacebookAdapter) {
		if version != "" {
			a.version = version
		}
	}
}

// WithFacebookObserver registers a function called with every completed
// attempt, connected or not.
func WithFacebookObserver(fn func(FacebookResult)) FacebookOption {
	return func(a *FacebookAdapter) {
		a.observer = fn
	}
}

// NewFacebookAdapter wraps sdk.
func NewFacebookAdapter(sdk FacebookSDK, opts ...FacebookOption) *FacebookAdapter {
	a := &FacebookAdapter{
		sdk:     sdk,
		version: DefaultFacebookAPIVersion,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Provider returns Facebook.
func (a *FacebookAdapter) Provider() Provider {
	return Facebook
}

// Start initializes the SDK for appID and begins a login asking for the
// email scope. Navigation happens later, when the SDK reports a connected
// session.
func (a *FacebookAdapter) Start(ctx context.Context, page Page, appID string) error {
	a.sdk.Init(FacebookInitOptions{
		AppID:   appID,
		Cookie:  true,
		XFBML:   true,
		Version: a.version,
	})

	attempt := &facebookAttempt{state: FacebookLoggingIn}
	err := a.sdk.Login(ctx, page, FacebookLoginOptions{Scope: []string{"email"}},
		func(ctx context.Context, page Page, resp FacebookResponse) error {
			return a.complete(ctx, attempt, page, resp)
		})
	if err != nil {
		attempt.advance(FacebookIdle)
		return fmt.Errorf("starting facebook login: %w", err)
	}
	return nil
}

// Resume completes an attempt whose Start ran in another process, or
// before a restart. It has the FacebookCallback signature.
func (a *FacebookAdapter) Resume(ctx context.Context, page Page, resp FacebookResponse) error {
	return a.complete(ctx, &facebookAttempt{state: FacebookLoggingIn}, page, resp)
}

func (a *FacebookAdapter) complete(ctx context.Context, attempt *facebookAttempt, page Page, resp FacebookResponse) error {
	result := facebookResult(resp)

	if !result.Connected {
		if !attempt.advance(FacebookIdle) {
			return errFacebookAttemptNotPending
		}
		a.observe(result)
		log.LogDebugWithFields("facebook", "Login not connected, staying on page", map[string]any{
			"status": string(resp.Status),
		})
		return nil
	}

	if !attempt.advance(FacebookNavigated) {
		return errFacebookAttemptNotPending
	}
	a.observe(result)

	target := FacebookCallbackURL(page, result.AccessToken)
	if err := page.Navigator.Navigate(ctx, target); err != nil {
		return fmt.Errorf("navigating to facebook callback: %w", err)
	}
	return nil
}

func (a *FacebookAdapter) observe(result FacebookResult) {
	if a.observer != nil {
		a.observer(result)
	}
}

// FacebookCallbackURL builds {baseURL}/callbacks/facebook for a connected
// session. The page's own query parameters travel along, except those this
// function sets itself.
func FacebookCallbackURL(page Page, accessToken string) string {
	base := page.URL("callbacks/facebook")

	carried := authurl.ParseQuery(page.Query).
		Del(authurl.StateParam).
		Del(FacebookAccessTokenParam)
	if len(carried) > 0 {
		base += "?" + carried.Encode()
	}

	return authurl.Build(base, authurl.Params{
		{Key: FacebookAccessTokenParam, Value: accessToken},
	}, page.Query)
}
