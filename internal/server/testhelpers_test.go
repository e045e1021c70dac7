package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgellow/login-front/internal/config"
	"github.com/dgellow/login-front/internal/fbsdk"
	"github.com/dgellow/login-front/internal/idp"
	"github.com/dgellow/login-front/internal/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testBaseURL = "https://app.example.com"
	testSAMLIdP = "https://idp.example.com/sso"
)

func testConfig() config.Config {
	return config.Config{
		Version: config.ConfigVersion,
		Server: config.ServerConfig{
			BaseURL: testBaseURL,
			Addr:    ":0",
			Name:    "login-front-test",
		},
		Providers: config.ProvidersConfig{
			Google:   &config.OAuthProviderConfig{ClientID: "google-client"},
			GitHub:   &config.OAuthProviderConfig{ClientID: "github-client"},
			LinkedIn: &config.OAuthProviderConfig{ClientID: "linkedin-client"},
			Facebook: &config.FacebookConfig{
				AppID:      "1234",
				AppSecret:  "app-secret",
				APIVersion: "v2.4",
				LoadJSSDK:  true,
			},
			SAML: []config.SAMLIdentityProvider{{Href: testSAMLIdP, DisplayName: "Corporate SSO"}},
		},
		Storage:    config.StorageConfig{Kind: config.StorageKindMemory},
		SigningKey: "0123456789abcdef0123456789abcdef",
		AttemptTTL: time.Minute,
	}
}

type testServer struct {
	handler http.Handler
	metrics *Metrics
}

// newTestServer wires the router the way the service does, with the
// Facebook token endpoint pointing at tokenURL
func newTestServer(t *testing.T, cfg config.Config, tokenURL string) *testServer {
	t.Helper()

	metrics := NewMetrics()
	var sdk *fbsdk.DialogSDK
	var completer FacebookCompleter
	if cfg.Providers.FacebookEnabled() {
		var err error
		sdk, err = fbsdk.NewDialogSDK(string(cfg.Providers.Facebook.AppSecret), []byte(cfg.SigningKey),
			storage.NewMemoryStore(), cfg.AttemptTTL,
			fbsdk.WithEndpoint(func(version string) oauth2.Endpoint {
				return oauth2.Endpoint{
					AuthURL:   "https://dialog.test/" + version + "/dialog/oauth",
					TokenURL:  tokenURL,
					AuthStyle: oauth2.AuthStyleInParams,
				}
			}))
		require.NoError(t, err)
		completer = sdk
	}

	var fb idp.FacebookSDK
	if sdk != nil {
		fb = sdk
	}
	registry, err := idp.NewRegistryFromConfig(cfg.Providers, fb, idp.WithFacebookObserver(metrics.ObserveFacebookResult))
	require.NoError(t, err)

	handlers := NewLoginHandlers(cfg, registry, completer, &fbsdk.ScriptLoader{}, metrics)
	return &testServer{handler: NewRouter(handlers, metrics), metrics: metrics}
}

func (s *testServer) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func newFacebookTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.FormValue("code") != "the-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad code"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"fb-token","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}
