package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/events"
	"github.com/aussiebroadwan/biblenation/internal/account/metrics"
	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"

	_ "github.com/aussiebroadwan/biblenation/api/account" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store                store.Store
	Hub                  *events.Hub
	Metrics              *metrics.Metrics
	AccountService       *service.AccountService
	SessionService       *service.SessionService
	EntitlementService   *service.EntitlementService
	NotificationService  *service.NotificationService
	PasswordResetService *service.PasswordResetService
	SettingsService      *service.SettingsService
	StatsService         *service.StatsService

	// ExposeResetCode echoes reset codes in responses. Off in production.
	ExposeResetCode bool
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
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMe()
	r.registerEntitlement()
	r.registerNotifications()
	r.registerPasswordReset()
	r.registerSettings()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Bible Nation Account Service API
//	@version		0.1.0
//	@description	Accounts, sessions, question entitlements and notifications for Bible Nation.
//	@description
//	@description				Sessions are carried as HS256 bearer tokens issued by signup and login.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/biblenation
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
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authed(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.SessionService),
		httpx.RateLimitByAccount(limit),
	)
}

func (r *Router) admin(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.SessionService),
		httpx.RequireRole(string(domain.RoleAdmin)),
		httpx.RateLimitByAccount(limit),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AccountService: r.AccountService,
		SessionService: r.SessionService,
	}

	// Credential endpoints - strict rate limit by IP to slow guessing
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout", r.authed(h.HandleLogout, httpx.ModerateLimit))
}

func (r *Router) registerMe() {
	h := &MeHandler{AccountService: r.AccountService}

	r.Mux.Handle("GET /v1/me", r.authed(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("PATCH /v1/me", r.authed(h.HandleUpdate, httpx.ModerateLimit))

	// Password change verifies the current password, so treat it like login
	r.Mux.Handle("POST /v1/me/password", r.authed(h.HandleChangePassword, httpx.StrictLimit))
}

func (r *Router) registerEntitlement() {
	h := &EntitlementHandler{EntitlementService: r.EntitlementService}

	r.Mux.Handle("POST /v1/entitlement/trial", r.authed(h.HandleStartTrial, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/entitlement/subscribe", r.authed(h.HandleSubscribe, httpx.ModerateLimit))

	// Anonymous callers get an unauthenticated result instead of a bare 401
	r.Mux.Handle("GET /v1/entitlement",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			httpx.OptionalAuthn(r.SessionService),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/questions",
		httpx.Chain(http.HandlerFunc(h.HandleAskQuestion),
			httpx.OptionalAuthn(r.SessionService),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerNotifications() {
	h := &NotificationsHandler{
		NotificationService: r.NotificationService,
		Hub:                 r.Hub,
		Metrics:             r.Metrics,
	}

	r.Mux.Handle("GET /v1/notifications", r.authed(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/notifications", r.authed(h.HandleCreate, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/notifications/read-all", r.authed(h.HandleMarkAllRead, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/notifications/{id}/read", r.authed(h.HandleMarkRead, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/notifications/{id}", r.authed(h.HandleDelete, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/notifications", r.authed(h.HandleClear, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/notifications/stream", r.authed(h.HandleStream, httpx.ModerateLimit))
}

func (r *Router) registerPasswordReset() {
	h := &PasswordResetHandler{
		PasswordResetService: r.PasswordResetService,
		ExposeCode:           r.ExposeResetCode,
	}

	// Unauthenticated and code guessing is the threat - strict by IP
	strict := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, httpx.RateLimitByIP(httpx.StrictLimit))
	}

	r.Mux.Handle("POST /v1/password-reset/request", strict(h.HandleRequest))
	r.Mux.Handle("POST /v1/password-reset/resend", strict(h.HandleResend))
	r.Mux.Handle("POST /v1/password-reset/verify", strict(h.HandleVerify))
	r.Mux.Handle("POST /v1/password-reset/complete", strict(h.HandleComplete))
}

func (r *Router) registerSettings() {
	h := &SettingsHandler{SettingsService: r.SettingsService}

	r.Mux.Handle("GET /v1/settings",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("PUT /v1/settings", r.authed(h.HandlePut, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/settings", r.authed(h.HandleReset, httpx.ModerateLimit))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{
		AccountService:      r.AccountService,
		NotificationService: r.NotificationService,
		StatsService:        r.StatsService,
	}

	r.Mux.Handle("GET /v1/admin/accounts", r.admin(h.HandleListAccounts, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/admin/accounts/{id}/activate", r.admin(h.HandleActivate, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/admin/accounts/{id}/deactivate", r.admin(h.HandleDeactivate, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/admin/accounts/{id}/delete", r.admin(h.HandleSoftDelete, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/admin/accounts/{id}/restore", r.admin(h.HandleRestore, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/admin/accounts/{id}", r.admin(h.HandleHardDelete, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/admin/emails", r.admin(h.HandleListEmails, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/admin/emails/test", r.admin(h.HandleTestEmail, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/admin/stats", r.admin(h.HandleStats, httpx.LenientLimit))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", r.Metrics.Handler())
}
