package domain

import "time"

// Session is the currently authenticated identity plus its canonical role.
// A nil *Session means anonymous. The role stored here is always
// CanonicalRole(Identity); the two are written and read as one snapshot.
type Session struct {
	Identity  Identity
	Role      Role
	ExpiresAt time.Time
}

// NewSession builds a consistent session snapshot for an identity.
func NewSession(id Identity, expiresAt time.Time) Session {
	return Session{
		Identity:  id,
		Role:      CanonicalRole(id),
		ExpiresAt: expiresAt,
	}
}

// Expired reports whether the session has passed its absolute expiry.
// A zero expiry means the session does not expire.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
