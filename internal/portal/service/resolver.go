package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	"github.com/pnvb/volunteer-portal/internal/portal/store"
	"github.com/pnvb/volunteer-portal/pkg/slogx"
)

var (
	// ErrInvalidCredentials means no account in any collection matched the
	// identifier and credential. Surfaced to users as a generic message that
	// never reveals which collection almost matched.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrAccountDisabled means a partner account matched but is inactive.
	ErrAccountDisabled = errors.New("account_disabled")

	// ErrLoginInProgress means another login attempt on the same session is
	// still in flight.
	ErrLoginInProgress = errors.New("login_in_progress")
)

// Resolver turns a credential pair into an identity. It fetches all three
// collections concurrently, then applies the deterministic priority order
// (candidates, partners, admins) purely over the settled results, so network
// interleaving never affects which account wins.
type Resolver struct {
	Store store.Store
}

// Resolve matches identifier+credential against the three collections.
// Candidates and admins match on username or email, partners on email only.
// A collection that fails to fetch contributes no accounts; if everything is
// down the net effect is ErrInvalidCredentials.
func (r *Resolver) Resolve(ctx context.Context, identifier, credential string) (domain.Identity, error) {
	log := slogx.FromContext(ctx)

	var (
		wg         sync.WaitGroup
		candidates []domain.CandidateIdentity
		partners   []domain.PartnerIdentity
		admins     []domain.AdminIdentity
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		var err error
		if candidates, err = r.Store.Candidates().List(ctx); err != nil {
			log.Warn("candidate collection degraded to empty", "error", err)
			candidates = nil
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if partners, err = r.Store.Partners().List(ctx); err != nil {
			log.Warn("partner collection degraded to empty", "error", err)
			partners = nil
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if admins, err = r.Store.Admins().List(ctx); err != nil {
			log.Warn("admin collection degraded to empty", "error", err)
			admins = nil
		}
	}()
	wg.Wait()

	for _, c := range candidates {
		if matchesIdentifier(identifier, c.Username, c.EmailAddr) && secretEqual(credential, c.Password) {
			return c, nil
		}
	}

	for _, p := range partners {
		if matchesIdentifier(identifier, "", p.EmailAddr) && secretEqual(credential, p.TempPassword) {
			if !p.Usable() {
				return nil, ErrAccountDisabled
			}
			return p, nil
		}
	}

	for _, a := range admins {
		if matchesIdentifier(identifier, a.Username, a.EmailAddr) && secretEqual(credential, a.Password) {
			return a, nil
		}
	}

	return nil, ErrInvalidCredentials
}

// matchesIdentifier compares the login identifier against an account's
// username and email. Email comparison is case-insensitive; usernames are
// exact.
func matchesIdentifier(identifier, username, email string) bool {
	if username != "" && identifier == username {
		return true
	}
	return email != "" && strings.EqualFold(identifier, email)
}

// secretEqual compares the submitted credential with the stored one. The
// upstream data holds plaintext credentials, a known flaw of the source
// system that this service inherits; the comparison is at least constant
// time.
func secretEqual(submitted, stored string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}
