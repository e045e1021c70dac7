package server

import (
	"net/http"

	jsonwriter "github.com/dgellow/login-front/internal/json"
	"github.com/go-chi/chi/v5"
)

// NewRouter wires the login routes, health and metrics behind the standard
// middleware stack
func NewRouter(h *LoginHandlers, metrics *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(
		NewRequestIDMiddleware(),
		NewLoggerMiddleware("http"),
		NewMetricsMiddleware(metrics),
		NewRecoverMiddleware("http"),
		NewSecurityHeadersMiddleware(),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonwriter.WriteNotFound(w, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Method(http.MethodGet, "/health", NewHealthHandler(h.name, h.registry.Enabled()...))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/", h.LoginPage)
	r.Get("/login", h.LoginPage)
	r.Get("/login/facebook/complete", h.CompleteFacebook)
	r.Get("/login/saml/{href}", h.StartSAMLLogin)
	r.Get("/login/{provider}", h.StartLogin)

	return r
}
