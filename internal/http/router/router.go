// Package router wires the endpoints to their controllers.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	healthctrl "github.com/govpass/govpass/internal/http/controllers/health"
	oauthctrl "github.com/govpass/govpass/internal/http/controllers/oauth"
	oidcctrl "github.com/govpass/govpass/internal/http/controllers/oidc"
	mw "github.com/govpass/govpass/internal/http/middlewares"
	"github.com/govpass/govpass/internal/metrics"
	"github.com/govpass/govpass/internal/rate"
)

// Deps contiene las dependencias para armar el router.
type Deps struct {
	OAuth       *oauthctrl.Controllers
	OIDC        *oidcctrl.Controllers
	Health      *healthctrl.Controller
	RateLimiter rate.Limiter // opcional
	CORSOrigins []string     // para el endpoint de tokens (SPAs)
}

// New construye el router chi con todas las rutas montadas.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithLogging(),
	)

	cors := mw.WithCORS(d.CORSOrigins)
	limited := func(h http.HandlerFunc) http.Handler {
		return mw.Chain(h, mw.WithNoStore(), mw.WithRateLimit(d.RateLimiter, mw.IPPathRateKey))
	}

	r.Route("/oauth", func(r chi.Router) {
		r.Method(http.MethodGet, "/authorize", limited(d.OAuth.Authorize.Authorize))
		r.Method(http.MethodPost, "/consent", limited(d.OAuth.Consent.Decide))

		// Token, introspección y revocación aceptan CORS: los clientes
		// públicos llaman desde el browser.
		r.Method(http.MethodPost, "/token", cors(limited(d.OAuth.Token.Token)))
		r.Method(http.MethodOptions, "/token", cors(http.NotFoundHandler()))
		r.Method(http.MethodPost, "/introspect", limited(d.OAuth.Introspect.Introspect))
		r.Method(http.MethodPost, "/revoke", cors(limited(d.OAuth.Revoke.Revoke)))
		r.Method(http.MethodOptions, "/revoke", cors(http.NotFoundHandler()))

		r.Get("/jwks", d.OIDC.JWKS)
	})

	r.Get("/.well-known/openid-configuration", d.OIDC.Discovery)
	r.Get("/healthz", d.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Register())

	return r
}
