package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/pkg/httpx"
	"github.com/aussiebroadwan/zenith-auth/pkg/ratelimit"
	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"

	_ "github.com/aussiebroadwan/zenith-auth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Limits are the per-endpoint-class limiters applied at the HTTP edge.
// A nil limiter disables that class.
type Limits struct {
	Strict   ratelimit.Limiter
	Moderate ratelimit.Limiter
	Lenient  ratelimit.Limiter
}

// MemoryLimits builds process-local limiters from the httpx profiles.
func MemoryLimits() Limits {
	return Limits{
		Strict:   ratelimit.NewMemory(httpx.StrictLimit),
		Moderate: ratelimit.NewMemory(httpx.ModerateLimit),
		Lenient:  ratelimit.NewMemory(httpx.LenientLimit),
	}
}

func orUnlimited(l ratelimit.Limiter) ratelimit.Limiter {
	if l == nil {
		return ratelimit.Unlimited{}
	}
	return l
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	CachePing    Pinger
	Limits       Limits
	Orchestrator *service.Orchestrator
	Identities   *service.IdentityService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(func(req *http.Request, v any) {
			slogx.FromContext(req.Context()).Error("handler panic", "path", req.URL.Path, "panic", v)
		}),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTwoFactor()
	r.registerSessions()
	r.registerIdentities()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Zenith Auth
//	@version		0.1.0
//	@description	Identity, session and two factor service for the Zenith platform.
//	@description
//	@description				Access and refresh tokens are HS256 JWTs signed with separate secrets.
//	@description				Access tokens are checked against the session store on every request.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/zenith-auth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authenticator() *Authenticator {
	return &Authenticator{Orchestrator: r.Orchestrator}
}

// authed authenticates the bearer token, checking session liveness, and
// limits by identity.
func (r *Router) authed(h http.Handler, limiter ratelimit.Limiter) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.authenticator(), writeError),
		httpx.RateLimitByIdentity(orUnlimited(limiter)),
	)
}

// capable is authed with a capability check folded into authentication.
func (r *Router) capable(h http.Handler, capability domain.Capability) http.Handler {
	return httpx.Chain(h,
		httpx.RequireCapability(r.authenticator(), string(capability), writeError),
		httpx.RateLimitByIdentity(orUnlimited(r.Limits.Moderate)),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Orchestrator: r.Orchestrator, Identities: r.Identities}
	strict := httpx.RateLimitByIP(orUnlimited(r.Limits.Strict))
	moderate := httpx.RateLimitByIP(orUnlimited(r.Limits.Moderate))

	// Credential-bearing endpoints are strict by IP; the service also
	// limits login per email and refresh per session.
	r.Mux.Handle("POST /v1/auth/register", httpx.Chain(http.HandlerFunc(h.HandleRegister), strict))
	r.Mux.Handle("POST /v1/auth/login", httpx.Chain(http.HandlerFunc(h.HandleLogin), strict))
	r.Mux.Handle("POST /v1/auth/2fa/verify", httpx.Chain(http.HandlerFunc(h.HandleVerifyTwoFactor), strict))
	r.Mux.Handle("POST /v1/auth/2fa/email", httpx.Chain(http.HandlerFunc(h.HandleSendLoginCode), strict))
	r.Mux.Handle("POST /v1/auth/refresh", httpx.Chain(http.HandlerFunc(h.HandleRefresh), moderate))

	// Logout verifies the token itself so a revoked session can still log out.
	r.Mux.Handle("POST /v1/auth/logout", httpx.Chain(http.HandlerFunc(h.HandleLogout), moderate))

	r.Mux.Handle("GET /v1/auth/whoami", r.authed(http.HandlerFunc(h.HandleWhoAmI), r.Limits.Lenient))
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{Orchestrator: r.Orchestrator}

	r.Mux.Handle("GET /v1/2fa", r.authed(http.HandlerFunc(h.HandleStatus), r.Limits.Moderate))
	r.Mux.Handle("POST /v1/2fa/setup", r.authed(http.HandlerFunc(h.HandleBeginSetup), r.Limits.Moderate))

	// Code-checking endpoints are strict to slow down guessing.
	r.Mux.Handle("POST /v1/2fa/confirm", r.authed(http.HandlerFunc(h.HandleConfirmSetup), r.Limits.Strict))
	r.Mux.Handle("POST /v1/2fa/disable", r.authed(http.HandlerFunc(h.HandleDisable), r.Limits.Strict))
	r.Mux.Handle("POST /v1/2fa/recovery-codes", r.authed(http.HandlerFunc(h.HandleRegenerateRecoveryCodes), r.Limits.Strict))
	r.Mux.Handle("POST /v1/2fa/email-code", r.authed(http.HandlerFunc(h.HandleSendManagementCode), r.Limits.Strict))

	r.Mux.Handle("GET /v1/2fa/devices", r.authed(http.HandlerFunc(h.HandleListDevices), r.Limits.Moderate))
	r.Mux.Handle("DELETE /v1/2fa/devices/{id}", r.authed(http.HandlerFunc(h.HandleForgetDevice), r.Limits.Moderate))
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{Orchestrator: r.Orchestrator}

	r.Mux.Handle("GET /v1/sessions", r.authed(http.HandlerFunc(h.HandleList), r.Limits.Moderate))
	r.Mux.Handle("DELETE /v1/sessions/{id}", r.authed(http.HandlerFunc(h.HandleRevoke), r.Limits.Moderate))
}

func (r *Router) registerIdentities() {
	h := &IdentitiesHandler{Orchestrator: r.Orchestrator, Identities: r.Identities}

	r.Mux.Handle("POST /v1/identities/me/password", r.authed(http.HandlerFunc(h.HandleChangePassword), r.Limits.Strict))
	r.Mux.Handle("GET /v1/identities/me/external-password", r.authed(http.HandlerFunc(h.HandleExternalPassword), r.Limits.Moderate))

	// Role assignment checks the capability inside authentication, after
	// the session is known to be live.
	r.Mux.Handle("PUT /v1/identities/{id}/role", r.capable(http.HandlerFunc(h.HandleAssignRole), domain.CapRolesAssign))
	r.Mux.Handle("POST /v1/identities/external", r.capable(http.HandlerFunc(h.HandleLinkExternal), domain.CapUsersManage))
	r.Mux.Handle("DELETE /v1/identities/{id}", r.capable(http.HandlerFunc(h.HandleDelete), domain.CapUsersManage))
}

func (r *Router) registerSystem() {
	lenient := httpx.RateLimitByIP(orUnlimited(r.Limits.Lenient))

	r.Mux.Handle("GET /livez", httpx.Chain(LivezHandler(r.startTime, r.buildVersion), lenient))
	r.Mux.Handle("GET /readyz", httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.CachePing), lenient))
}
