package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	"github.com/pnvb/volunteer-portal/internal/portal/store"
	"github.com/pnvb/volunteer-portal/internal/portal/store/drivers/memory"
)

func boolPtr(b bool) *bool { return &b }

func seededStore() *memory.Store {
	st := memory.NewStore()
	st.SeedCandidates(
		domain.CandidateIdentity{AccountID: "c1", Username: "awa", EmailAddr: "awa@example.org", Password: "candid1", RawRole: "candidat"},
		domain.CandidateIdentity{AccountID: "c2", Username: "issa", EmailAddr: "issa@example.org", Password: "volun1", RawRole: "volontaire"},
	)
	st.SeedPartners(
		domain.PartnerIdentity{AccountID: "p1", EmailAddr: "ong@example.org", TempPassword: "partner1", OrgName: "ONG Espoir", Active: boolPtr(true)},
		domain.PartnerIdentity{AccountID: "p2", EmailAddr: "closed@example.org", TempPassword: "partner2", OrgName: "ONG Fermee", Enabled: boolPtr(false)},
	)
	st.SeedAdmins(
		domain.AdminIdentity{AccountID: "a1", Username: "root", EmailAddr: "admin@pnvb.gov.bf", Password: "admin123", RawRole: "admin"},
	)
	return st
}

func TestResolveMatchesEachCollection(t *testing.T) {
	t.Parallel()

	r := &Resolver{Store: seededStore()}
	ctx := context.Background()

	t.Run("candidate by username", func(t *testing.T) {
		id, err := r.Resolve(ctx, "awa", "candid1")
		require.NoError(t, err)
		require.Equal(t, domain.KindCandidate, id.Kind())
		require.Equal(t, domain.RoleCandidate, domain.CanonicalRole(id))
	})

	t.Run("volunteer by email", func(t *testing.T) {
		id, err := r.Resolve(ctx, "issa@example.org", "volun1")
		require.NoError(t, err)
		require.Equal(t, domain.RoleVolunteer, domain.CanonicalRole(id))
	})

	t.Run("partner by email only", func(t *testing.T) {
		id, err := r.Resolve(ctx, "ong@example.org", "partner1")
		require.NoError(t, err)
		require.Equal(t, domain.KindPartner, id.Kind())
	})

	t.Run("admin by username or email", func(t *testing.T) {
		id, err := r.Resolve(ctx, "admin@pnvb.gov.bf", "admin123")
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, domain.CanonicalRole(id))

		id, err = r.Resolve(ctx, "root", "admin123")
		require.NoError(t, err)
		require.Equal(t, domain.KindAdmin, id.Kind())
	})
}

func TestResolveRejectsWrongCredentials(t *testing.T) {
	t.Parallel()

	r := &Resolver{Store: seededStore()}
	ctx := context.Background()

	_, err := r.Resolve(ctx, "awa", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = r.Resolve(ctx, "nobody@example.org", "candid1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Identifier of one account with the credential of another must not mix.
	_, err = r.Resolve(ctx, "awa", "admin123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveInactivePartnerIsDisabledNotNotFound(t *testing.T) {
	t.Parallel()

	r := &Resolver{Store: seededStore()}

	_, err := r.Resolve(context.Background(), "closed@example.org", "partner2")
	require.ErrorIs(t, err, ErrAccountDisabled)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolvePriorityOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	// The same identifier+credential exists in the candidate and the admin
	// collections; the candidate collection always wins.
	st := memory.NewStore()
	st.SeedCandidates(domain.CandidateIdentity{AccountID: "c1", Username: "dupe", EmailAddr: "dupe@example.org", Password: "pw", RawRole: "candidate"})
	st.SeedAdmins(domain.AdminIdentity{AccountID: "a1", Username: "dupe", EmailAddr: "dupe@example.org", Password: "pw", RawRole: "admin"})

	r := &Resolver{Store: st}
	for range 10 {
		id, err := r.Resolve(context.Background(), "dupe", "pw")
		require.NoError(t, err)
		require.Equal(t, domain.KindCandidate, id.Kind())
	}
}

func TestResolveDegradesFailedCollections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("one collection down does not abort the others", func(t *testing.T) {
		st := seededStore()
		st.FailCandidates(store.ErrUnavailable)

		r := &Resolver{Store: st}
		id, err := r.Resolve(ctx, "admin@pnvb.gov.bf", "admin123")
		require.NoError(t, err)
		require.Equal(t, domain.KindAdmin, id.Kind())

		// A candidate login during the outage reads as invalid credentials,
		// never as an authentication.
		_, err = r.Resolve(ctx, "awa", "candid1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("all collections down nets out to invalid credentials", func(t *testing.T) {
		st := seededStore()
		outage := errors.New("backend down")
		st.FailCandidates(outage)
		st.FailPartners(outage)
		st.FailAdmins(outage)

		r := &Resolver{Store: st}
		_, err := r.Resolve(ctx, "admin@pnvb.gov.bf", "admin123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestSecretEqual(t *testing.T) {
	t.Parallel()

	require.True(t, secretEqual("pw", "pw"))
	require.False(t, secretEqual("pw", "PW"))
	require.False(t, secretEqual("", ""), "empty stored credential never matches")
}
