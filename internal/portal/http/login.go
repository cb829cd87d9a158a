package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pnvb/volunteer-portal/internal/portal/service"
	"github.com/pnvb/volunteer-portal/pkg/httpx"
	"github.com/pnvb/volunteer-portal/pkg/idx"
	"github.com/pnvb/volunteer-portal/pkg/slogx"
)

// LoginHandler serves POST /v1/auth/login.
type LoginHandler struct {
	Auth   *service.AuthSession
	Cookie *CookieCodec
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// ServeHTTP godoc
//
//	@Summary		Portal login
//	@Description	Resolves the submitted identifier and password against the enrolment backend and opens a session. Candidates match on username or email, partners and administrators on email.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		loginRequest		true	"identifier and password"
//	@Success		200		{object}	SessionSummary		"authenticated session"
//	@Failure		400		{object}	httpx.ErrorBody		"malformed request"
//	@Failure		401		{object}	httpx.ErrorBody		"incorrect email or password"
//	@Failure		403		{object}	httpx.ErrorBody		"account disabled"
//	@Failure		409		{object}	httpx.ErrorBody		"a login attempt is already in progress"
//	@Failure		500		{object}	httpx.ErrorBody		"server error"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "identifier and password are required")
		return
	}

	// Every authentication gets a fresh session ID; the ID in any presented
	// cookie is never carried into the new session, so a planted cookie can
	// not be primed to open someone else's login (session fixation).
	oldSID, hadCookie := h.Cookie.Read(r)
	sid := idx.New().String()

	// Overlapping logins from the same browser session contend on the old
	// session's slot; the fresh ID's slot is always free.
	if hadCookie {
		prior := h.Auth.Sessions.Attach(oldSID)
		if !prior.TryBeginLogin() {
			httpx.WriteError(w, http.StatusConflict, "login_in_progress", "a login attempt is already in progress")
			return
		}
		defer prior.EndLogin()
	}

	sess, err := h.Auth.Login(ctx, sid, identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "incorrect email or password")
		case errors.Is(err, service.ErrAccountDisabled):
			if hadCookie {
				h.Auth.Logout(ctx, oldSID)
			}
			h.Cookie.Clear(w)
			httpx.WriteError(w, http.StatusForbidden, "account_disabled", "your account is disabled, contact the administrator")
		case errors.Is(err, service.ErrLoginInProgress):
			httpx.WriteError(w, http.StatusConflict, "login_in_progress", "a login attempt is already in progress")
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "login could not be completed")
		}
		return
	}

	// Retire the session the old cookie pointed at; only the fresh cookie
	// issued below resolves the new one.
	if hadCookie && oldSID != sid {
		h.Auth.Logout(ctx, oldSID)
	}

	if err := h.Cookie.Issue(w, sid, sess.ExpiresAt); err != nil {
		log.Error("session cookie issue failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "login could not be completed")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, Summarize(&sess))
}

// LogoutHandler serves POST /v1/auth/logout.
type LogoutHandler struct {
	Auth   *service.AuthSession
	Cookie *CookieCodec
}

// ServeHTTP godoc
//
//	@Summary		Portal logout
//	@Description	Clears the session and its persisted snapshot, then redirects to the login page. Safe to call without a session.
//	@Tags			Auth
//	@Success		303	{string}	string	"redirect to /login"
//	@Router			/v1/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if sid, ok := h.Cookie.Read(r); ok {
		h.Auth.Logout(r.Context(), sid)
	}
	h.Cookie.Clear(w)
	redirect(w, r, RouteLogin)
}
