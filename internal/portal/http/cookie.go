package http

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the browser cookie carrying the signed session ID.
const SessionCookieName = "pnvb_session"

// CookieCodec mints and reads the session cookie. The cookie holds only a
// signed session ID; the session itself lives server-side in the snapshot
// store.
type CookieCodec struct {
	Secret []byte // HS256 signing key
	Secure bool   // set the Secure attribute (disabled for dev over http)
}

type sessionClaims struct {
	jwt.RegisteredClaims

	SID string `json:"sid"`
}

// Issue signs the session ID and sets the cookie until expiresAt.
func (c *CookieCodec) Issue(w http.ResponseWriter, sid string, expiresAt time.Time) error {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SID: sid,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read extracts and verifies the session ID from the request cookie. A
// missing, expired or tampered cookie reads as no session.
func (c *CookieCodec) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	var claims sessionClaims
	_, err = jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (any, error) {
		return c.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.SID == "" {
		return "", false
	}
	return claims.SID, true
}

// Clear removes the session cookie.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
