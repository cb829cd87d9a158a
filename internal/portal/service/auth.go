package service

import (
	"context"
	"errors"
	"time"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	"github.com/pnvb/volunteer-portal/internal/portal/session"
)

// AuthSession is the facade the rest of the portal talks to: login, logout
// and the synchronous role queries. It composes the credential resolver with
// the session manager and never leaves a half-set session behind.
type AuthSession struct {
	Resolver *Resolver
	Sessions *session.Manager
}

// Login resolves the credentials and installs the session. Overlapping
// attempts on the same session are rejected with ErrLoginInProgress instead
// of racing to a last-write-wins outcome. On ErrAccountDisabled the session
// is cleared defensively even though nothing was set for this attempt.
func (a *AuthSession) Login(ctx context.Context, sid, identifier, credential string) (domain.Session, error) {
	cell := a.Sessions.Attach(sid)
	if !cell.TryBeginLogin() {
		return domain.Session{}, ErrLoginInProgress
	}
	defer cell.EndLogin()

	id, err := a.Resolver.Resolve(ctx, identifier, credential)
	if err != nil {
		if errors.Is(err, ErrAccountDisabled) {
			a.Sessions.Clear(ctx, sid)
		}
		return domain.Session{}, err
	}

	return a.Sessions.Set(ctx, sid, id)
}

// Logout clears the session; the HTTP layer then sends the user back to the
// public entry point.
func (a *AuthSession) Logout(ctx context.Context, sid string) {
	a.Sessions.Clear(ctx, sid)
}

// Session waits for the session to settle (completing a pending restore if
// one is running) and returns it, or nil when anonymous or expired.
func (a *AuthSession) Session(ctx context.Context, sid string) (*domain.Session, error) {
	sess, err := a.Sessions.Attach(sid).First(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Expired(time.Now()) {
		return nil, nil
	}
	return sess, nil
}

// Current is the synchronous read: no restore wait, no error. Unknown or
// pending sessions read as anonymous.
func (a *AuthSession) Current(sid string) *domain.Session {
	cell := a.Sessions.Peek(sid)
	if cell == nil {
		return nil
	}
	sess := cell.Current()
	if sess == nil || sess.Expired(time.Now()) {
		return nil
	}
	return sess
}

// Role returns the canonical role of the current session, RoleNone when
// anonymous.
func (a *AuthSession) Role(sid string) domain.Role {
	if sess := a.Current(sid); sess != nil {
		return sess.Role
	}
	return domain.RoleNone
}

// IsAuthenticated reports whether a session is currently set.
func (a *AuthSession) IsAuthenticated(sid string) bool { return a.Current(sid) != nil }

// IsAdmin reports whether the current role is admin or super-admin.
func (a *AuthSession) IsAdmin(sid string) bool { return a.Role(sid).IsAdmin() }

// IsPartner reports whether the current role is partner.
func (a *AuthSession) IsPartner(sid string) bool { return a.Role(sid) == domain.RolePartner }

// IsCandidateOrVolunteer reports whether the current role is candidate or
// volunteer.
func (a *AuthSession) IsCandidateOrVolunteer(sid string) bool {
	return a.Role(sid).In(domain.RoleCandidate, domain.RoleVolunteer)
}

// HasAnyRole reports whether the current role is a member of the given set.
func (a *AuthSession) HasAnyRole(sid string, roles ...domain.Role) bool {
	return a.Role(sid).In(roles...)
}
