package http

import (
	"net/http"
	"time"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	"github.com/pnvb/volunteer-portal/internal/portal/service"
	"github.com/pnvb/volunteer-portal/pkg/httpx"
)

// SessionSummary is the session view returned to the browser. It never
// includes credentials.
type SessionSummary struct {
	Authenticated bool       `json:"authenticated"`
	Kind          string     `json:"kind,omitempty"`
	Role          string     `json:"role,omitempty"`
	Email         string     `json:"email,omitempty"`
	DisplayName   string     `json:"displayName,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// Summarize renders a session for the wire. A nil session summarizes as
// anonymous.
func Summarize(sess *domain.Session) SessionSummary {
	if sess == nil || sess.Identity == nil {
		return SessionSummary{}
	}

	out := SessionSummary{
		Authenticated: true,
		Kind:          string(sess.Identity.Kind()),
		Role:          sess.Role.String(),
		Email:         sess.Identity.Email(),
	}
	if !sess.ExpiresAt.IsZero() {
		exp := sess.ExpiresAt
		out.ExpiresAt = &exp
	}

	switch id := sess.Identity.(type) {
	case domain.CandidateIdentity:
		out.DisplayName = id.Username
	case domain.PartnerIdentity:
		out.DisplayName = id.OrgName
	case domain.AdminIdentity:
		out.DisplayName = id.Username
	}
	return out
}

// SessionHandler serves GET /v1/session.
type SessionHandler struct {
	Auth   *service.AuthSession
	Cookie *CookieCodec
}

// ServeHTTP godoc
//
//	@Summary		Current session
//	@Description	Reports the session bound to the request's cookie. Waits for a pending restore after a server restart, so the answer is authoritative rather than a race against the snapshot store.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	SessionSummary	"authenticated=false for anonymous visitors"
//	@Router			/v1/session [get].
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.Cookie.Read(r)
	if !ok {
		httpx.WriteJSON(w, http.StatusOK, SessionSummary{})
		return
	}

	sess, err := h.Auth.Session(r.Context(), sid)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, SessionSummary{})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, Summarize(sess))
}
