package idp

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFacebookSDK holds the callback until the test completes the attempt.
type fakeFacebookSDK struct {
	mu        sync.Mutex
	init      FacebookInitOptions
	login     FacebookLoginOptions
	callbacks []FacebookCallback
	loginErr  error
}

func (f *fakeFacebookSDK) Init(opts FacebookInitOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init = opts
}

func (f *fakeFacebookSDK) Login(_ context.Context, _ Page, opts FacebookLoginOptions, cb FacebookCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	f.login = opts
	f.callbacks = append(f.callbacks, cb)
	return nil
}

func (f *fakeFacebookSDK) respond(t *testing.T, page Page, resp FacebookResponse) error {
	t.Helper()
	f.mu.Lock()
	require.NotEmpty(t, f.callbacks)
	cb := f.callbacks[len(f.callbacks)-1]
	f.mu.Unlock()
	return cb(context.Background(), page, resp)
}

func connected(token string) FacebookResponse {
	return FacebookResponse{
		Status:       FacebookConnected,
		AuthResponse: &FacebookAuthResponse{AccessToken: token},
	}
}

func TestFacebookAdapter_Start(t *testing.T) {
	sdk := &fakeFacebookSDK{}
	adapter := NewFacebookAdapter(sdk)
	page, nav := newTestPage("")

	require.NoError(t, adapter.Start(context.Background(), page, "app-1"))

	assert.Equal(t, FacebookInitOptions{AppID: "app-1", Cookie: true, XFBML: true, Version: "v2.4"}, sdk.init)
	assert.Equal(t, []string{"email"}, sdk.login.Scope)
	assert.Empty(t, nav.Targets(), "nothing navigates before the SDK calls back")
}

func TestFacebookAdapter_APIVersion(t *testing.T) {
	sdk := &fakeFacebookSDK{}
	adapter := NewFacebookAdapter(sdk, WithFacebookAPIVersion("v19.0"), WithFacebookAPIVersion(""))
	page, _ := newTestPage("")

	require.NoError(t, adapter.Start(context.Background(), page, "app-1"))
	assert.Equal(t, "v19.0", sdk.init.Version)
}

func TestFacebookAdapter_Connected(t *testing.T) {
	var results []FacebookResult
	sdk := &fakeFacebookSDK{}
	adapter := NewFacebookAdapter(sdk, WithFacebookObserver(func(r FacebookResult) {
		results = append(results, r)
	}))

	page, nav := newTestPage("")
	require.NoError(t, adapter.Start(context.Background(), page, "app-1"))
	require.NoError(t, sdk.respond(t, page, connected("tok-1")))

	target, ok := nav.Last()
	require.True(t, ok)
	assert.Equal(t, testBaseURL+"/callbacks/facebook?accessToken=tok-1", target)
	assert.Equal(t, []FacebookResult{{Connected: true, AccessToken: "tok-1"}}, results)
}

func TestFacebookAdapter_ConnectedWithNext(t *testing.T) {
	sdk := &fakeFacebookSDK{}
	adapter := NewFacebookAdapter(sdk)

	page, nav := newTestPage("next=%2Fhome&lang=en&state=stale")
	require.NoError(t, adapter.Start(context.Background(), page, "app-1"))
	require.NoError(t, sdk.respond(t, page, connected("tok")))

	target, _ := nav.Last()
	u, err := url.Parse(target)
	require.NoError(t, err)

	assert.Equal(t, "/callbacks/facebook", u.Path)
	q := u.Query()
	assert.Equal(t, []string{"tok"}, q["accessToken"])
	assert.Equal(t, []string{"/home"}, q["state"])
	assert.Equal(t, "en", q.Get("lang"))
	assert.Equal(t, "/home", q.Get("next"))
}

func TestFacebookAdapter_NotConnected(t *testing.T) {
	statuses := []FacebookResponse{
		{Status: FacebookNotAuthorized},
		{Status: FacebookUnknown},
		{Status: FacebookConnected},
	}

	for _, resp := range statuses {
		t.Run(string(resp.Status), func(t *testing.T) {
			var results []FacebookResult
			sdk := &fakeFacebookSDK{}
			adapter := NewFacebookAdapter(sdk, WithFacebookObserver(func(r FacebookResult) {
				results = append(results, r)
			}))

			page, nav := newTestPage("next=/x")
			require.NoError(t, adapter.Start(context.Background(), page, "app-1"))
			require.NoError(t, sdk.respond(t, page, resp))

			assert.Empty(t, nav.Targets())
			assert.Equal(t, []FacebookResult{{}}, results)
		})
	}
}

func TestFacebookAdapter_CallbackRunsOnce(t *testing.T) {
	sdk := &fakeFacebookSDK{}
	adapter := NewFacebookAdapter(sdk)

	page, nav := newTestPage("")
	require.NoError(t, adapter.Start(context.Background(), page, "app-1"))
	require.NoError(t, sdk.respond(t, page, connected("tok")))

	err := sdk.respond(t, page, connected("tok"))
	assert.ErrorIs(t, err, errFacebookAttemptNotPending)
	assert.Len(t, nav.Targets(), 1)
}

func TestFacebookAdapter_LoginError(t *testing.T) {
	sdk := &fakeFacebookSDK{loginErr: errors.New("sdk unavailable")}
	adapter := NewFacebookAdapter(sdk)
	page, _ := newTestPage("")

	err := adapter.Start(context.Background(), page, "app-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sdk unavailable")
}

func TestFacebookAdapter_Resume(t *testing.T) {
	var results []FacebookResult
	adapter := NewFacebookAdapter(&fakeFacebookSDK{}, WithFacebookObserver(func(r FacebookResult) {
		results = append(results, r)
	}))
	page, nav := newTestPage("next=%2Fhome")

	require.NoError(t, adapter.Resume(context.Background(), page, connected("tok")))
	target, ok := nav.Last()
	require.True(t, ok)
	assert.Equal(t, testBaseURL+"/callbacks/facebook?next=%2Fhome&accessToken=tok&state=%2Fhome", target)

	require.NoError(t, adapter.Resume(context.Background(), page, FacebookResponse{Status: FacebookUnknown}))
	assert.Len(t, nav.Targets(), 1)
	assert.Equal(t, []FacebookResult{{Connected: true, AccessToken: "tok"}, {}}, results)
}
