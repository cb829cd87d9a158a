package store

import (
	"context"
	"errors"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
)

// ErrUnavailable reports a transport-level failure fetching a collection.
// Resolution treats an unavailable collection as empty (fail-open to "not
// found", never to "authenticated").
var ErrUnavailable = errors.New("store: collection unavailable")

// Store is read-only access to the three upstream identity collections. Each
// collection exposes only a fetch-all operation; filtering happens in the
// resolver after the fetch. That is acceptable at the portal's data scale but
// is a known scalability limit of the upstream API.
type Store interface {
	Candidates() Candidates
	Partners() Partners
	Admins() Admins

	// Close releases any underlying resources.
	Close() error
}

type Candidates interface {
	// List returns every candidate/volunteer account.
	List(ctx context.Context) ([]domain.CandidateIdentity, error)
}

type Partners interface {
	// List returns every partner-organization account.
	List(ctx context.Context) ([]domain.PartnerIdentity, error)
}

type Admins interface {
	// List returns every administrator account.
	List(ctx context.Context) ([]domain.AdminIdentity, error)
}
