package http

import (
	"context"
	"net/http"
	"time"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	"github.com/pnvb/volunteer-portal/internal/portal/service"
	"github.com/pnvb/volunteer-portal/pkg/httpx"
)

// Route targets used by the guards.
const (
	RouteRoot    = "/"
	RouteLogin   = "/login"
	RouteDefault = "/home"

	RouteCandidateHome = "/candidate/home"
	RoutePartnerHome   = "/partner/home"
	RouteAdminHome     = "/admin/home"
)

// DefaultGuardTimeout bounds how long a guard waits for a pending session
// restore before treating the visitor as anonymous.
const DefaultGuardTimeout = 5 * time.Second

// HomeFor maps a role to its landing page.
func HomeFor(role domain.Role) string {
	switch role {
	case domain.RoleCandidate, domain.RoleVolunteer:
		return RouteCandidateHome
	case domain.RolePartner:
		return RoutePartnerHome
	case domain.RoleAdmin, domain.RoleSuperAdmin:
		return RouteAdminHome
	default:
		return RouteDefault
	}
}

// Guards builds the navigation middleware protecting portal pages. Each guard
// decides once per request, after the session state for the request's cookie
// is known.
type Guards struct {
	Auth    *service.AuthSession
	Cookie  *CookieCodec
	Timeout time.Duration
}

func NewGuards(auth *service.AuthSession, cookie *CookieCodec) *Guards {
	return &Guards{Auth: auth, Cookie: cookie, Timeout: DefaultGuardTimeout}
}

// Authenticated gates a page behind a live session. Anonymous visitors are
// sent to the login page. When roles are given, authenticated visitors whose
// role is not among them are sent to their own landing page instead, never to
// login.
func (g *Guards) Authenticated(roles ...domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := g.resolve(r)
			if sess == nil {
				redirect(w, r, RouteLogin)
				return
			}
			if len(roles) > 0 && !sess.Role.In(roles...) {
				redirect(w, r, HomeFor(sess.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admin gates a page behind an admin session. Non-admins and anonymous
// visitors alike land on the portal root.
func (g *Guards) Admin() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := g.resolve(r)
			if sess == nil || !sess.Role.IsAdmin() {
				redirect(w, r, RouteRoot)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Public gates pages meant for anonymous visitors, such as the login page.
// Authenticated visitors are bounced to their landing page.
func (g *Guards) Public() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := g.resolve(r)
			if sess != nil {
				redirect(w, r, HomeFor(sess.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolve reads the request's session, waiting out a pending restore so the
// guard never races a cold start to a false negative. A session that cannot
// be resolved within the guard timeout counts as anonymous.
func (g *Guards) resolve(r *http.Request) *domain.Session {
	sid, ok := g.Cookie.Read(r)
	if !ok {
		return nil
	}

	// Fast path: already resolved, no need to touch the stream.
	if cell := g.Auth.Sessions.Peek(sid); cell != nil && cell.Resolved() {
		return g.Auth.Current(sid)
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultGuardTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	sess, err := g.Auth.Session(ctx, sid)
	if err != nil {
		return nil
	}
	return sess
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
