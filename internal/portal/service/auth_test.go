package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	"github.com/pnvb/volunteer-portal/internal/portal/session"
	snapmem "github.com/pnvb/volunteer-portal/internal/portal/session/drivers/memory"
	"github.com/pnvb/volunteer-portal/internal/portal/store"
	"github.com/pnvb/volunteer-portal/pkg/sealx"
)

func newAuth(t *testing.T, st store.Store) (*AuthSession, *snapmem.Store) {
	t.Helper()

	sealer, err := sealx.New(sealx.NewRandomKey())
	require.NoError(t, err)

	snaps := snapmem.NewStore()
	return &AuthSession{
		Resolver: &Resolver{Store: st},
		Sessions: session.NewManager(snaps, sealer, time.Hour, slog.Default()),
	}, snaps
}

func TestLoginSetsSessionWithNormalizedRole(t *testing.T) {
	t.Parallel()

	auth, _ := newAuth(t, seededStore())
	ctx := context.Background()

	sess, err := auth.Login(ctx, "sid-1", "admin@pnvb.gov.bf", "admin123")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, sess.Role)

	require.True(t, auth.IsAuthenticated("sid-1"))
	require.True(t, auth.IsAdmin("sid-1"))
	require.False(t, auth.IsPartner("sid-1"))
	require.False(t, auth.IsCandidateOrVolunteer("sid-1"))
	require.True(t, auth.HasAnyRole("sid-1", domain.RoleAdmin, domain.RoleSuperAdmin))
}

func TestLoginInvalidCredentialsLeavesAnonymous(t *testing.T) {
	t.Parallel()

	auth, snaps := newAuth(t, seededStore())

	_, err := auth.Login(context.Background(), "sid-1", "awa", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.False(t, auth.IsAuthenticated("sid-1"))
	require.Equal(t, domain.RoleNone, auth.Role("sid-1"))
	require.Equal(t, 0, snaps.Len())
}

func TestLoginDisabledPartnerClearsDefensively(t *testing.T) {
	t.Parallel()

	auth, snaps := newAuth(t, seededStore())
	ctx := context.Background()

	// An earlier identity is signed in on this session.
	_, err := auth.Login(ctx, "sid-1", "awa", "candid1")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "sid-1", "closed@example.org", "partner2")
	require.ErrorIs(t, err, ErrAccountDisabled)

	// The failed attempt must not leave any session behind.
	require.False(t, auth.IsAuthenticated("sid-1"))
	require.Equal(t, 0, snaps.Len())
}

func TestLoginOverwritesPreviousIdentity(t *testing.T) {
	t.Parallel()

	auth, _ := newAuth(t, seededStore())
	ctx := context.Background()

	_, err := auth.Login(ctx, "sid-1", "awa", "candid1")
	require.NoError(t, err)
	require.True(t, auth.IsCandidateOrVolunteer("sid-1"))

	sess, err := auth.Login(ctx, "sid-1", "ong@example.org", "partner1")
	require.NoError(t, err)
	require.Equal(t, domain.RolePartner, sess.Role)
	require.True(t, auth.IsPartner("sid-1"))
	require.False(t, auth.IsCandidateOrVolunteer("sid-1"))
}

func TestLogoutReturnsToAnonymousAndBackAgain(t *testing.T) {
	t.Parallel()

	auth, _ := newAuth(t, seededStore())
	ctx := context.Background()

	_, err := auth.Login(ctx, "sid-1", "root", "admin123")
	require.NoError(t, err)

	auth.Logout(ctx, "sid-1")
	require.False(t, auth.IsAuthenticated("sid-1"))

	// The lifecycle is cyclic: a fresh login after logout works.
	_, err = auth.Login(ctx, "sid-1", "awa", "candid1")
	require.NoError(t, err)
	require.True(t, auth.IsCandidateOrVolunteer("sid-1"))
}

// gatedStore delays candidate fetches until released, keeping a login attempt
// in flight for as long as the test needs. It signals on started when a fetch
// begins.
type gatedStore struct {
	store.Store
	started chan struct{}
	gate    chan struct{}
}

func (g *gatedStore) Candidates() store.Candidates {
	return &gatedCandidates{inner: g.Store.Candidates(), started: g.started, gate: g.gate}
}

type gatedCandidates struct {
	inner   store.Candidates
	started chan struct{}
	gate    chan struct{}
}

func (g *gatedCandidates) List(ctx context.Context) ([]domain.CandidateIdentity, error) {
	select {
	case g.started <- struct{}{}:
	default:
	}
	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.inner.List(ctx)
}

func TestOverlappingLoginIsRejected(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 1)
	gate := make(chan struct{})
	auth, _ := newAuth(t, &gatedStore{Store: seededStore(), started: started, gate: gate})
	ctx := context.Background()

	type result struct {
		sess domain.Session
		err  error
	}
	firstDone := make(chan result, 1)
	go func() {
		sess, err := auth.Login(ctx, "sid-1", "root", "admin123")
		firstDone <- result{sess, err}
	}()

	// The first attempt holds the login slot once its fetch has started.
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first login attempt never started fetching")
	}

	_, err := auth.Login(ctx, "sid-1", "root", "admin123")
	require.ErrorIs(t, err, ErrLoginInProgress)

	close(gate)
	res := <-firstDone
	require.NoError(t, res.err)
	require.Equal(t, domain.RoleAdmin, res.sess.Role)

	// A different session is never blocked by sid-1's login slot.
	_, err = auth.Login(ctx, "sid-2", "awa", "candid1")
	require.NoError(t, err)
}
