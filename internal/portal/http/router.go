package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	"github.com/pnvb/volunteer-portal/internal/portal/service"
	"github.com/pnvb/volunteer-portal/internal/portal/session"
	"github.com/pnvb/volunteer-portal/pkg/httpx"
	"github.com/pnvb/volunteer-portal/pkg/slogx"

	_ "github.com/pnvb/volunteer-portal/api/portal" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Auth     *service.AuthSession
	Sessions *session.Manager
	Cookie   *CookieCodec
	Guards   *Guards
}

func NewRouter(
	auth *service.AuthSession,
	sessions *session.Manager,
	cookie *CookieCodec,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Auth:         auth,
		Sessions:     sessions,
		Cookie:       cookie,
		Guards:       NewGuards(auth, cookie),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPages()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			PNVB Volunteer Portal API
//	@version		0.1.0
//	@description	Session and identity API for the national volunteer programme portal. Logins are resolved
//	@description	against the enrolment backend's account collections and the resulting session is kept
//	@description	server-side, referenced by a signed browser cookie.
//
//	@contact.name	PNVB Platform Team
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// POST /v1/auth/login - strict rate limit by IP (authentication attempts)
	loginHandler := &LoginHandler{Auth: r.Auth, Cookie: r.Cookie}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/auth/logout - moderate rate limit
	logoutHandler := &LogoutHandler{Auth: r.Auth, Cookie: r.Cookie}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /v1/session - lenient, the SPA polls this on boot
	sessionHandler := &SessionHandler{Auth: r.Auth, Cookie: r.Cookie}
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(sessionHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerPages() {
	g := r.Guards

	// Login page: anonymous only, logged-in visitors bounce to their home.
	r.Mux.Handle("GET "+RouteLogin, httpx.Chain(Page("login"), g.Public()))

	// Landing pages per role.
	r.Mux.Handle("GET "+RouteCandidateHome,
		httpx.Chain(Page("candidate-home"),
			g.Authenticated(domain.RoleCandidate, domain.RoleVolunteer),
		),
	)
	r.Mux.Handle("GET "+RoutePartnerHome,
		httpx.Chain(Page("partner-home"),
			g.Authenticated(domain.RolePartner),
		),
	)
	r.Mux.Handle("GET "+RouteAdminHome, httpx.Chain(Page("admin-home"), g.Admin()))
	r.Mux.Handle("GET /admin/volunteers", httpx.Chain(Page("admin-volunteers"), g.Admin()))

	// Any authenticated visitor.
	r.Mux.Handle("GET "+RouteDefault, httpx.Chain(Page("home"), g.Authenticated()))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Sessions),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
