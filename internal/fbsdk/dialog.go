// Package fbsdk is a server-side stand-in for the Facebook JavaScript SDK.
// It runs the login as a redirect through the Facebook OAuth dialog and
// reports the outcome to a callback, the way FB.login does in a browser.
package fbsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgellow/login-front/internal/crypto"
	"github.com/dgellow/login-front/internal/idp"
	"github.com/dgellow/login-front/internal/log"
	"github.com/dgellow/login-front/internal/storage"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
)

// CompletePath is where the dialog returns to, relative to the base URL
const CompletePath = "login/facebook/complete"

var (
	// ErrNotInitialized is returned by Login before Init set an app id
	ErrNotInitialized = errors.New("facebook sdk not initialized")
	// ErrInvalidState is returned when the dialog returns a state this
	// service did not sign
	ErrInvalidState = errors.New("invalid facebook login state")
	// ErrNoCallback is returned when an attempt completes and nothing is
	// registered to receive it
	ErrNoCallback = errors.New("no callback for facebook login attempt")
)

// Endpoint returns the OAuth endpoint of the Facebook login dialog for a
// Graph API version
func Endpoint(version string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   "https://www.facebook.com/" + version + "/dialog/oauth",
		TokenURL:  "https://graph.facebook.com/" + version + "/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

type stateClaims struct {
	AttemptID string `json:"aid"`
}

// DialogSDK implements idp.FacebookSDK. Login stores a pending attempt and
// navigates to the dialog. Complete is called when the dialog redirects
// back and runs the callback given to Login.
type DialogSDK struct {
	mu       sync.Mutex
	initOpts idp.FacebookInitOptions

	appSecret string
	store     storage.AttemptStore
	signer    crypto.TokenSigner
	ttl       time.Duration
	endpoint  func(version string) oauth2.Endpoint
	now       func() time.Time

	// callbacks of attempts started by this process, keyed by attempt id
	callbacks *gocache.Cache
	fallback  idp.FacebookCallback
}

var _ idp.FacebookSDK = (*DialogSDK)(nil)

// Option configures a DialogSDK
type Option func(*DialogSDK)

// WithEndpoint replaces the Facebook endpoints
func WithEndpoint(fn func(version string) oauth2.Endpoint) Option {
	return func(s *DialogSDK) {
		s.endpoint = fn
	}
}

// WithFallbackCallback sets the callback for attempts started by another
// process sharing the attempt store
func WithFallbackCallback(cb idp.FacebookCallback) Option {
	return func(s *DialogSDK) {
		s.fallback = cb
	}
}

// NewDialogSDK creates a DialogSDK. signingKey signs the dialog state and
// ttl bounds how long an attempt may stay pending.
func NewDialogSDK(appSecret string, signingKey []byte, store storage.AttemptStore, ttl time.Duration, opts ...Option) (*DialogSDK, error) {
	if store == nil {
		return nil, fmt.Errorf("attempt store is required")
	}
	key, err := crypto.DeriveKey(signingKey, "facebook-dialog-state")
	if err != nil {
		return nil, fmt.Errorf("deriving state key: %w", err)
	}

	s := &DialogSDK{
		appSecret: appSecret,
		store:     store,
		signer:    crypto.NewTokenSigner(key, ttl),
		ttl:       ttl,
		endpoint:  Endpoint,
		now:       time.Now,
		callbacks: gocache.New(ttl, time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetFallbackCallback is WithFallbackCallback for an already built SDK
func (s *DialogSDK) SetFallbackCallback(cb idp.FacebookCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = cb
}

// Init records the app id and Graph API version. Calling it again replaces
// both.
func (s *DialogSDK) Init(opts idp.FacebookInitOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initOpts = opts
}

func (s *DialogSDK) initOptions() idp.FacebookInitOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initOpts
}

func (s *DialogSDK) oauthConfig(page idp.Page, initOpts idp.FacebookInitOptions, scopes []string) *oauth2.Config {
	version := initOpts.Version
	if version == "" {
		version = idp.DefaultFacebookAPIVersion
	}
	return &oauth2.Config{
		ClientID:     initOpts.AppID,
		ClientSecret: s.appSecret,
		Endpoint:     s.endpoint(version),
		RedirectURL:  page.URL(CompletePath),
		Scopes:       scopes,
	}
}

// Login starts a dialog login and navigates page to the dialog. cb runs
// when Complete is called for this attempt.
func (s *DialogSDK) Login(ctx context.Context, page idp.Page, opts idp.FacebookLoginOptions, cb idp.FacebookCallback) error {
	initOpts := s.initOptions()
	if initOpts.AppID == "" {
		return ErrNotInitialized
	}

	now := s.now()
	attempt := storage.Attempt{
		ID:        uuid.NewString(),
		AppID:     initOpts.AppID,
		PageQuery: page.Query,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, attempt); err != nil {
		return fmt.Errorf("storing attempt: %w", err)
	}
	if cb != nil {
		s.callbacks.Set(attempt.ID, cb, gocache.DefaultExpiration)
	}

	state, err := s.signer.Sign(stateClaims{AttemptID: attempt.ID})
	if err != nil {
		return fmt.Errorf("signing state: %w", err)
	}

	target := s.oauthConfig(page, initOpts, opts.Scope).AuthCodeURL(state)

	log.LogDebugWithFields("fbsdk", "Starting dialog login", log.FieldsFromContext(ctx, map[string]any{
		"attempt_id": attempt.ID,
		"app_id":     attempt.AppID,
	}))

	return page.Navigator.Navigate(ctx, target)
}

// Complete finishes the attempt named by state. code and errReason are the
// dialog's query parameters. page is the page the dialog returned to; the
// callback sees it with the query of the page the attempt started from,
// which is also returned once the attempt is found.
func (s *DialogSDK) Complete(ctx context.Context, page idp.Page, state, code, errReason string) (string, error) {
	var claims stateClaims
	if err := s.signer.Verify(state, &claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	attempt, err := s.store.Take(ctx, claims.AttemptID)
	if err != nil {
		return "", fmt.Errorf("taking attempt %s: %w", claims.AttemptID, err)
	}

	cb := s.takeCallback(attempt.ID)
	if cb == nil {
		return attempt.PageQuery, fmt.Errorf("%w %s", ErrNoCallback, attempt.ID)
	}

	initOpts := s.initOptions()
	initOpts.AppID = attempt.AppID
	resp := s.exchange(ctx, page, initOpts, code, errReason)

	return attempt.PageQuery, cb(ctx, idp.Page{
		BaseURL:   page.BaseURL,
		Query:     attempt.PageQuery,
		Navigator: page.Navigator,
	}, resp)
}

func (s *DialogSDK) takeCallback(id string) idp.FacebookCallback {
	if v, ok := s.callbacks.Get(id); ok {
		s.callbacks.Delete(id)
		return v.(idp.FacebookCallback)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback
}

// exchange turns the dialog result into the response FB.login would give
func (s *DialogSDK) exchange(ctx context.Context, page idp.Page, initOpts idp.FacebookInitOptions, code, errReason string) idp.FacebookResponse {
	if errReason != "" {
		status := idp.FacebookUnknown
		if errReason == "user_denied" {
			status = idp.FacebookNotAuthorized
		}
		return idp.FacebookResponse{Status: status}
	}
	if code == "" {
		return idp.FacebookResponse{Status: idp.FacebookUnknown}
	}

	token, err := s.oauthConfig(page, initOpts, nil).Exchange(ctx, code)
	if err != nil {
		log.LogWarnWithFields("fbsdk", "Code exchange failed", log.FieldsFromContext(ctx, map[string]any{
			"error": err.Error(),
		}))
		return idp.FacebookResponse{Status: idp.FacebookUnknown}
	}

	auth := &idp.FacebookAuthResponse{AccessToken: token.AccessToken}
	if !token.Expiry.IsZero() {
		auth.ExpiresIn = int(token.Expiry.Sub(s.now()).Seconds())
	}
	if userID, ok := token.Extra("user_id").(string); ok {
		auth.UserID = userID
	}
	return idp.FacebookResponse{Status: idp.FacebookConnected, AuthResponse: auth}
}
