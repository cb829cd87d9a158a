package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	portalhttp "github.com/pnvb/volunteer-portal/internal/portal/http"
	"github.com/pnvb/volunteer-portal/internal/portal/service"
	"github.com/pnvb/volunteer-portal/internal/portal/session"
	sessmem "github.com/pnvb/volunteer-portal/internal/portal/session/drivers/memory"
	storemem "github.com/pnvb/volunteer-portal/internal/portal/store/drivers/memory"
	"github.com/pnvb/volunteer-portal/pkg/sealx"
)

func boolPtr(b bool) *bool { return &b }

func seededBackend() *storemem.Store {
	st := storemem.NewStore()
	st.SeedCandidates(
		domain.CandidateIdentity{AccountID: "c1", Username: "awa", EmailAddr: "awa@example.bf", Password: "candid1", RawRole: "candidate"},
		domain.CandidateIdentity{AccountID: "c2", Username: "issa", EmailAddr: "issa@example.bf", Password: "candid2", RawRole: "Volontaire"},
	)
	st.SeedPartners(
		domain.PartnerIdentity{AccountID: "p1", EmailAddr: "ong@example.bf", TempPassword: "partner1", OrgName: "ONG Espoir", Active: boolPtr(true), Enabled: boolPtr(true)},
		domain.PartnerIdentity{AccountID: "p2", EmailAddr: "closed@example.bf", TempPassword: "partner2", OrgName: "ONG Fermee", Active: boolPtr(false), Enabled: boolPtr(true)},
	)
	st.SeedAdmins(
		domain.AdminIdentity{AccountID: "a1", Username: "root", EmailAddr: "admin@pnvb.gov.bf", Password: "admin123", RawRole: "admin"},
	)
	return st
}

type fixture struct {
	router *portalhttp.Router
	snaps  *sessmem.Store
	sealer *sealx.Sealer
	mgr    *session.Manager
	auth   *service.AuthSession
	cookie *portalhttp.CookieCodec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sealer, err := sealx.New(sealx.NewRandomKey())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	snaps := sessmem.NewStore()
	mgr := session.NewManager(snaps, sealer, time.Hour, logger)
	auth := &service.AuthSession{
		Resolver: &service.Resolver{Store: seededBackend()},
		Sessions: mgr,
	}
	cookie := &portalhttp.CookieCodec{Secret: []byte("test-cookie-secret")}

	router := portalhttp.NewRouter(auth, mgr, cookie, "test", logger)
	router.ApplyRoutes()

	return &fixture{router: router, snaps: snaps, sealer: sealer, mgr: mgr, auth: auth, cookie: cookie}
}

// login posts credentials and returns the response recorder.
func (f *fixture) login(t *testing.T, identifier, password string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]string{"identifier": identifier, "password": password})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == portalhttp.SessionCookieName && c.MaxAge >= 0 {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func (f *fixture) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesSessionCookie(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.login(t, "awa", "candid1")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary portalhttp.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.True(t, summary.Authenticated)
	require.Equal(t, "candidate", summary.Role)
	require.Equal(t, "awa", summary.DisplayName)

	cookie := sessionCookie(t, rec)

	// The session endpoint must agree with the login response.
	rec = f.get("/v1/session", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.True(t, summary.Authenticated)
	require.Equal(t, "candidate", summary.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.login(t, "awa", "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_credentials")

	// No cookie, no session.
	rec = f.get("/v1/session")
	var summary portalhttp.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.False(t, summary.Authenticated)
}

func TestLoginDisabledPartnerIsForbidden(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.login(t, "closed@example.bf", "partner2")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "account_disabled")
}

func TestLoginMalformedBody(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsSessionAndRedirects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	cookie := sessionCookie(t, f.login(t, "awa", "candid1"))

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Result().Header.Get("Location"))
	require.Zero(t, f.snaps.Len())

	// The old cookie still verifies but its session is gone.
	rec = f.get("/v1/session", cookie)
	var summary portalhttp.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.False(t, summary.Authenticated)
}

func TestAuthGuardRedirectsAnonymousToLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.get("/home")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Result().Header.Get("Location"))
}

func TestAuthGuardRedirectsWrongRoleToOwnHome(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	cookie := sessionCookie(t, f.login(t, "awa", "candid1"))

	// A candidate poking at the partner area lands on the candidate home,
	// never back at login.
	rec := f.get("/partner/home", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/candidate/home", rec.Result().Header.Get("Location"))

	rec = f.get("/candidate/home", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminGuardSendsNonAdminsToRoot(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// Anonymous.
	rec := f.get("/admin/home")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Result().Header.Get("Location"))

	// Authenticated but not admin.
	cookie := sessionCookie(t, f.login(t, "awa", "candid1"))
	rec = f.get("/admin/volunteers", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Result().Header.Get("Location"))
}

func TestAdminEndToEnd(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.login(t, "admin@pnvb.gov.bf", "admin123")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	require.Equal(t, http.StatusOK, f.get("/admin/home", cookie).Code)
	require.Equal(t, http.StatusOK, f.get("/admin/volunteers", cookie).Code)

	// Admins are authenticated visitors too.
	require.Equal(t, http.StatusOK, f.get("/home", cookie).Code)
}

func TestPublicGuardBouncesAuthenticatedVisitors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// Anonymous visitors see the login page.
	require.Equal(t, http.StatusOK, f.get("/login").Code)

	cookie := sessionCookie(t, f.login(t, "ong@example.bf", "partner1"))
	rec := f.get("/login", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/partner/home", rec.Result().Header.Get("Location"))
}

func TestVolunteerSharesCandidateHome(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.login(t, "issa", "candid2")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary portalhttp.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, "volunteer", summary.Role)

	cookie := sessionCookie(t, rec)
	require.Equal(t, http.StatusOK, f.get("/candidate/home", cookie).Code)
}

// A restart drops the in-memory cells but not the snapshot store. A new
// router sharing the same snapshots and keys must restore the session before
// the guard answers.
func TestGuardWaitsForRestoreAfterRestart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	cookie := sessionCookie(t, f.login(t, "admin@pnvb.gov.bf", "admin123"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := session.NewManager(f.snaps, f.sealer, time.Hour, logger)
	auth := &service.AuthSession{Resolver: f.auth.Resolver, Sessions: mgr}

	router := portalhttp.NewRouter(auth, mgr, f.cookie, "test", logger)
	router.ApplyRoutes()

	req := httptest.NewRequest(http.MethodGet, "/admin/home", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.get("/livez")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = f.get("/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTamperedCookieReadsAnonymous(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	cookie := sessionCookie(t, f.login(t, "awa", "candid1"))
	cookie.Value += "x"

	rec := f.get("/home", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Result().Header.Get("Location"))
}

// A cookie presented at login must never name the session that the login
// installs: the session ID is rotated on every authentication and the old
// session is retired, so a planted cookie opens nothing.
func TestLoginRotatesSessionID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	plantedCookie := sessionCookie(t, f.login(t, "awa", "candid1"))

	rec := f.login(t, "admin@pnvb.gov.bf", "admin123", plantedCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	freshCookie := sessionCookie(t, rec)
	require.NotEqual(t, plantedCookie.Value, freshCookie.Value)

	// Only the freshly issued cookie resolves the new session.
	require.Equal(t, http.StatusOK, f.get("/admin/home", freshCookie).Code)

	// The planted cookie's session was retired: its snapshot is gone and the
	// cookie resolves to anonymous everywhere.
	require.Equal(t, 1, f.snaps.Len())

	res := f.get("/admin/home", plantedCookie)
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/", res.Result().Header.Get("Location"))

	var summary portalhttp.SessionSummary
	res = f.get("/v1/session", plantedCookie)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &summary))
	require.False(t, summary.Authenticated)
}
