package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/dgellow/login-front/internal/config"
	"github.com/dgellow/login-front/internal/fbsdk"
	"github.com/dgellow/login-front/internal/idp"
	jsonwriter "github.com/dgellow/login-front/internal/json"
	"github.com/dgellow/login-front/internal/log"
	"github.com/dgellow/login-front/internal/storage"
	"github.com/go-chi/chi/v5"
)

// FacebookCompleter finishes a Facebook dialog login. It returns the query
// of the page the login started from.
type FacebookCompleter interface {
	Complete(ctx context.Context, page idp.Page, state, code, errReason string) (string, error)
}

var providerLabels = map[idp.Provider]string{
	idp.Google:   "Sign in with Google",
	idp.Facebook: "Sign in with Facebook",
	idp.GitHub:   "Sign in with GitHub",
	idp.LinkedIn: "Sign in with LinkedIn",
}

// LoginHandlers serves the login page and starts logins
type LoginHandlers struct {
	name     string
	baseURL  string
	registry *idp.Registry
	saml     []config.SAMLIdentityProvider
	facebook FacebookCompleter
	fbPage   *FacebookPageConfig
	scripts  *fbsdk.ScriptLoader
	metrics  *Metrics
}

// NewLoginHandlers creates the login handlers. facebook may be nil when
// Facebook is not configured.
func NewLoginHandlers(cfg config.Config, registry *idp.Registry, facebook FacebookCompleter, scripts *fbsdk.ScriptLoader, metrics *Metrics) *LoginHandlers {
	h := &LoginHandlers{
		name:     cfg.Server.Name,
		baseURL:  cfg.Server.BaseURL,
		registry: registry,
		saml:     cfg.Providers.SAML,
		facebook: facebook,
		scripts:  scripts,
		metrics:  metrics,
	}

	if fb := cfg.Providers.Facebook; cfg.Providers.FacebookEnabled() && fb.LoadJSSDK {
		h.fbPage = &FacebookPageConfig{AppID: fb.AppID, Version: fb.APIVersion}
		scripts.Inject(fbsdk.SDKScriptID, fbsdk.SDKScriptSrc)
	}
	return h
}

func (h *LoginHandlers) page(r *http.Request, nav idp.Navigator) idp.Page {
	return idp.Page{BaseURL: h.baseURL, Query: r.URL.RawQuery, Navigator: nav}
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// buttons lists one button per enabled provider, and one per SAML identity
// provider. Links carry the page's query so "next" survives the click.
func (h *LoginHandlers) buttons(rawQuery string) []LoginButton {
	var buttons []LoginButton
	for _, p := range h.registry.Enabled() {
		if p == idp.SAML {
			for _, s := range h.saml {
				label := s.DisplayName
				if label == "" {
					label = s.Href
				}
				buttons = append(buttons, LoginButton{
					Provider: p.String(),
					ID:       s.Href,
					Label:    label,
					Href:     withQuery("/login/saml/"+url.PathEscape(s.Href), rawQuery),
				})
			}
			continue
		}

		reg, err := h.registry.Lookup(p)
		if err != nil {
			continue
		}
		buttons = append(buttons, LoginButton{
			Provider: p.String(),
			ID:       reg.Identifier,
			Label:    providerLabels[p],
			Href:     withQuery("/login/"+p.String(), rawQuery),
		})
	}
	return buttons
}

// LoginPage renders the login page
func (h *LoginHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := LoginPageData{
		Name:     h.name,
		BaseURL:  h.baseURL,
		Buttons:  h.buttons(r.URL.RawQuery),
		Facebook: h.fbPage,
		Scripts:  h.scripts.Scripts(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginPageTemplate.Execute(w, data); err != nil {
		log.LogErrorWithFields("login", "Failed to render login page", log.FieldsFromContext(r.Context(), map[string]any{
			"error": err.Error(),
		}))
		jsonwriter.WriteInternalServerError(w, "Internal server error")
	}
}

// StartLogin handles /login/{provider} for the providers that need no
// per-button input
func (h *LoginHandlers) StartLogin(w http.ResponseWriter, r *http.Request) {
	provider, err := idp.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil || provider == idp.SAML {
		jsonwriter.WriteNotFound(w, "Unknown provider")
		return
	}
	h.start(w, r, provider, "")
}

// StartSAMLLogin handles /login/saml/{href}. Only configured hrefs are
// accepted.
func (h *LoginHandlers) StartSAMLLogin(w http.ResponseWriter, r *http.Request) {
	href, err := url.PathUnescape(chi.URLParam(r, "href"))
	if err != nil || !h.knownSAMLHref(href) {
		jsonwriter.WriteNotFound(w, "Unknown SAML identity provider")
		return
	}
	h.start(w, r, idp.SAML, href)
}

func (h *LoginHandlers) knownSAMLHref(href string) bool {
	for _, s := range h.saml {
		if s.Href == href {
			return true
		}
	}
	return false
}

func (h *LoginHandlers) start(w http.ResponseWriter, r *http.Request, provider idp.Provider, identifier string) {
	ctx := r.Context()
	nav := newRedirectNavigator(w, r)

	err := h.registry.Start(ctx, provider, h.page(r, nav), identifier)
	if errors.Is(err, idp.ErrProviderNotRegistered) {
		jsonwriter.WriteNotFound(w, "Provider not enabled")
		return
	}
	if err != nil {
		log.LogErrorWithFields("login", "Failed to start login", log.FieldsFromContext(ctx, map[string]any{
			"provider": provider.String(),
			"error":    err.Error(),
		}))
		if !nav.navigated {
			jsonwriter.WriteInternalServerError(w, "Failed to start login")
		}
		return
	}

	h.metrics.ObserveLoginRedirect(provider)
}

// CompleteFacebook handles the Facebook dialog's redirect back. A connected
// login is redirected to the Facebook callback; anything else lands on the
// login page it started from.
func (h *LoginHandlers) CompleteFacebook(w http.ResponseWriter, r *http.Request) {
	if h.facebook == nil {
		jsonwriter.WriteNotFound(w, "Provider not enabled")
		return
	}

	ctx := r.Context()
	q := r.URL.Query()
	errReason := q.Get("error_reason")
	if errReason == "" {
		errReason = q.Get("error")
	}

	nav := newRedirectNavigator(w, r)
	pageQuery, err := h.facebook.Complete(ctx, h.page(r, nav), q.Get("state"), q.Get("code"), errReason)
	if nav.navigated {
		return
	}

	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, fbsdk.ErrInvalidState):
			reason = "invalid_state"
		case errors.Is(err, storage.ErrAttemptNotFound):
			reason = "attempt_not_found"
		case errors.Is(err, fbsdk.ErrNoCallback):
			reason = "no_callback"
		}
		h.metrics.ObserveFacebookFailure(reason)
		log.LogWarnWithFields("login", "Facebook login could not be completed", log.FieldsFromContext(ctx, map[string]any{
			"reason": reason,
			"error":  err.Error(),
		}))
	}

	http.Redirect(w, r, withQuery("/login", pageQuery), http.StatusFound)
}
