package fbsdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgellow/login-front/internal/idp"
	"github.com/dgellow/login-front/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testBaseURL    = "https://app.example.com"
	testSigningKey = "0123456789abcdef0123456789abcdef"
)

type tokenServer struct {
	*httptest.Server
	calls atomic.Int32
}

func newTokenServer(t *testing.T, status int, body string) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		assert.Equal(t, "1234", r.Form.Get("client_id"))
		assert.Equal(t, "app-secret", r.Form.Get("client_secret"))
		assert.Equal(t, testBaseURL+"/login/facebook/complete", r.Form.Get("redirect_uri"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestSDK(t *testing.T, store storage.AttemptStore, tokenURL string, opts ...Option) *DialogSDK {
	t.Helper()
	opts = append([]Option{WithEndpoint(func(version string) oauth2.Endpoint {
		return oauth2.Endpoint{
			AuthURL:   "https://dialog.test/" + version + "/dialog/oauth",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		}
	})}, opts...)
	sdk, err := NewDialogSDK("app-secret", []byte(testSigningKey), store, time.Minute, opts...)
	require.NoError(t, err)
	sdk.Init(idp.FacebookInitOptions{AppID: "1234", Cookie: true, XFBML: true, Version: "v2.4"})
	return sdk
}

func newTestPage(query string) (idp.Page, *idp.RecordingNavigator) {
	nav := &idp.RecordingNavigator{}
	return idp.Page{BaseURL: testBaseURL, Query: query, Navigator: nav}, nav
}

type capturedCallback struct {
	calls int
	page  idp.Page
	resp  idp.FacebookResponse
}

func (c *capturedCallback) callback(_ context.Context, page idp.Page, resp idp.FacebookResponse) error {
	c.calls++
	c.page = page
	c.resp = resp
	return nil
}

// startLogin runs Login and returns the state the dialog would send back
func startLogin(t *testing.T, sdk *DialogSDK, query string, cb idp.FacebookCallback) string {
	t.Helper()
	page, nav := newTestPage(query)
	require.NoError(t, sdk.Login(context.Background(), page, idp.FacebookLoginOptions{Scope: []string{"email"}}, cb))

	target, ok := nav.Last()
	require.True(t, ok)
	u, err := url.Parse(target)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestDialogSDK_LoginNavigatesToDialog(t *testing.T) {
	sdk := newTestSDK(t, storage.NewMemoryStore(), "http://unused.test/token")
	page, nav := newTestPage("next=%2Fdash")

	require.NoError(t, sdk.Login(context.Background(), page, idp.FacebookLoginOptions{Scope: []string{"email"}}, nil))

	target, ok := nav.Last()
	require.True(t, ok)
	u, err := url.Parse(target)
	require.NoError(t, err)

	assert.Equal(t, "dialog.test", u.Host)
	assert.Equal(t, "/v2.4/dialog/oauth", u.Path)
	q := u.Query()
	assert.Equal(t, "1234", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "email", q.Get("scope"))
	assert.Equal(t, testBaseURL+"/login/facebook/complete", q.Get("redirect_uri"))
	assert.NotEmpty(t, q.Get("state"))
	assert.NotContains(t, target, "app-secret")
}

func TestDialogSDK_LoginRequiresInit(t *testing.T) {
	sdk, err := NewDialogSDK("app-secret", []byte(testSigningKey), storage.NewMemoryStore(), time.Minute)
	require.NoError(t, err)

	page, nav := newTestPage("")
	err = sdk.Login(context.Background(), page, idp.FacebookLoginOptions{}, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Empty(t, nav.Targets())
}

func TestNewDialogSDK_Validation(t *testing.T) {
	_, err := NewDialogSDK("s", []byte(testSigningKey), nil, time.Minute)
	assert.Error(t, err)

	_, err = NewDialogSDK("s", nil, storage.NewMemoryStore(), time.Minute)
	assert.Error(t, err)
}

func TestDialogSDK_CompleteConnected(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"fb-token","token_type":"bearer","expires_in":3600}`)
	sdk := newTestSDK(t, storage.NewMemoryStore(), ts.URL)

	cb := &capturedCallback{}
	state := startLogin(t, sdk, "next=%2Fdash&lang=en", cb.callback)

	completePage, _ := newTestPage("state=" + url.QueryEscape(state) + "&code=the-code")
	pageQuery, err := sdk.Complete(context.Background(), completePage, state, "the-code", "")
	require.NoError(t, err)

	assert.Equal(t, "next=%2Fdash&lang=en", pageQuery)
	assert.Equal(t, 1, cb.calls)
	assert.Equal(t, "next=%2Fdash&lang=en", cb.page.Query)
	assert.Equal(t, testBaseURL, cb.page.BaseURL)
	assert.Same(t, completePage.Navigator, cb.page.Navigator)
	assert.Equal(t, idp.FacebookConnected, cb.resp.Status)
	require.NotNil(t, cb.resp.AuthResponse)
	assert.Equal(t, "fb-token", cb.resp.AuthResponse.AccessToken)
	assert.InDelta(t, 3600, cb.resp.AuthResponse.ExpiresIn, 5)
	assert.Equal(t, int32(1), ts.calls.Load())
}

func TestDialogSDK_CompleteOnce(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"fb-token","token_type":"bearer"}`)
	sdk := newTestSDK(t, storage.NewMemoryStore(), ts.URL)

	cb := &capturedCallback{}
	state := startLogin(t, sdk, "", cb.callback)
	page, _ := newTestPage("")

	_, err := sdk.Complete(context.Background(), page, state, "the-code", "")
	require.NoError(t, err)
	_, err = sdk.Complete(context.Background(), page, state, "the-code", "")
	assert.ErrorIs(t, err, storage.ErrAttemptNotFound)
	assert.Equal(t, 1, cb.calls)
}

func TestDialogSDK_CompleteRejectsForgedState(t *testing.T) {
	sdk := newTestSDK(t, storage.NewMemoryStore(), "http://unused.test/token")
	cb := &capturedCallback{}
	page, _ := newTestPage("")

	_, err := sdk.Complete(context.Background(), page, "garbage", "c", "")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = sdk.Complete(context.Background(), page, "", "c", "")
	assert.ErrorIs(t, err, ErrInvalidState)

	forged, err := NewDialogSDK("app-secret", []byte("another-signing-key-of-32-chars!"), storage.NewMemoryStore(), time.Minute)
	require.NoError(t, err)
	forged.Init(idp.FacebookInitOptions{AppID: "1234"})
	state := startLogin(t, forged, "", cb.callback)

	_, err = sdk.Complete(context.Background(), page, state, "c", "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, cb.calls)
}

func TestDialogSDK_CompleteWithoutCode(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		errReason string
		want      idp.FacebookStatus
	}{
		{name: "user_denied", errReason: "user_denied", want: idp.FacebookNotAuthorized},
		{name: "other_error", errReason: "server_error", want: idp.FacebookUnknown},
		{name: "no_code", want: idp.FacebookUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTokenServer(t, http.StatusOK, `{}`)
			sdk := newTestSDK(t, storage.NewMemoryStore(), ts.URL)

			cb := &capturedCallback{}
			state := startLogin(t, sdk, "next=x", cb.callback)
			page, _ := newTestPage("")

			_, err := sdk.Complete(context.Background(), page, state, tt.code, tt.errReason)
			require.NoError(t, err)
			assert.Equal(t, 1, cb.calls)
			assert.Equal(t, tt.want, cb.resp.Status)
			assert.Nil(t, cb.resp.AuthResponse)
			assert.Equal(t, int32(0), ts.calls.Load())
		})
	}
}

func TestDialogSDK_ExchangeFailure(t *testing.T) {
	ts := newTokenServer(t, http.StatusBadRequest, `{"error":{"message":"Invalid verification code"}}`)
	sdk := newTestSDK(t, storage.NewMemoryStore(), ts.URL)

	cb := &capturedCallback{}
	state := startLogin(t, sdk, "", cb.callback)
	page, _ := newTestPage("")

	_, err := sdk.Complete(context.Background(), page, state, "the-code", "")
	require.NoError(t, err)
	assert.Equal(t, idp.FacebookUnknown, cb.resp.Status)
}

func TestDialogSDK_FallbackCallback(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"fb-token","token_type":"bearer"}`)
	store := storage.NewMemoryStore()

	starter := newTestSDK(t, store, ts.URL)
	state := startLogin(t, starter, "next=%2Fdash", nil)

	fallback := &capturedCallback{}
	finisher := newTestSDK(t, store, ts.URL, WithFallbackCallback(fallback.callback))
	page, _ := newTestPage("")

	_, err := finisher.Complete(context.Background(), page, state, "the-code", "")
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, "next=%2Fdash", fallback.page.Query)

	orphan := newTestSDK(t, store, ts.URL)
	state = startLogin(t, starter, "", nil)
	_, err = orphan.Complete(context.Background(), page, state, "the-code", "")
	assert.ErrorIs(t, err, ErrNoCallback)
}

func TestDialogSDK_WithFacebookAdapter(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"fb-token","token_type":"bearer"}`)
	sdk := newTestSDK(t, storage.NewMemoryStore(), ts.URL)
	adapter := idp.NewFacebookAdapter(sdk)

	startPage, startNav := newTestPage("next=%2Fdash")
	require.NoError(t, adapter.Start(context.Background(), startPage, "1234"))
	dialog, ok := startNav.Last()
	require.True(t, ok)
	u, err := url.Parse(dialog)
	require.NoError(t, err)

	completePage, completeNav := newTestPage("")
	_, err = sdk.Complete(context.Background(), completePage, u.Query().Get("state"), "the-code", "")
	require.NoError(t, err)

	target, ok := completeNav.Last()
	require.True(t, ok)
	assert.Equal(t, testBaseURL+"/callbacks/facebook?next=%2Fdash&accessToken=fb-token&state=%2Fdash", target)
}

func TestEndpoint(t *testing.T) {
	e := Endpoint("v19.0")
	assert.Equal(t, "https://www.facebook.com/v19.0/dialog/oauth", e.AuthURL)
	assert.Equal(t, "https://graph.facebook.com/v19.0/oauth/access_token", e.TokenURL)
}
