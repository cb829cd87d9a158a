package memory

import (
	"context"
	"sync"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	"github.com/pnvb/volunteer-portal/internal/portal/store"
)

// Store is an in-memory identity store used by tests and local development.
// Collections can be seeded and individually forced to fail to simulate a
// flaky upstream.
type Store struct {
	mu         sync.RWMutex
	candidates []domain.CandidateIdentity
	partners   []domain.PartnerIdentity
	admins     []domain.AdminIdentity

	candidatesErr error
	partnersErr   error
	adminsErr     error
}

func NewStore() *Store { return &Store{} }

func (s *Store) Candidates() store.Candidates { return &candidatesRepo{s} }
func (s *Store) Partners() store.Partners     { return &partnersRepo{s} }
func (s *Store) Admins() store.Admins         { return &adminsRepo{s} }

func (s *Store) Close() error { return nil }

// SeedCandidates replaces the candidate/volunteer collection.
func (s *Store) SeedCandidates(cs ...domain.CandidateIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append([]domain.CandidateIdentity(nil), cs...)
}

// SeedPartners replaces the partner collection.
func (s *Store) SeedPartners(ps ...domain.PartnerIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partners = append([]domain.PartnerIdentity(nil), ps...)
}

// SeedAdmins replaces the administrator collection.
func (s *Store) SeedAdmins(as ...domain.AdminIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins = append([]domain.AdminIdentity(nil), as...)
}

// FailCandidates makes candidate fetches return err (nil restores service).
func (s *Store) FailCandidates(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidatesErr = err
}

// FailPartners makes partner fetches return err (nil restores service).
func (s *Store) FailPartners(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partnersErr = err
}

// FailAdmins makes admin fetches return err (nil restores service).
func (s *Store) FailAdmins(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminsErr = err
}

type candidatesRepo struct{ s *Store }

func (r *candidatesRepo) List(ctx context.Context) ([]domain.CandidateIdentity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.candidatesErr != nil {
		return nil, r.s.candidatesErr
	}
	return append([]domain.CandidateIdentity(nil), r.s.candidates...), nil
}

type partnersRepo struct{ s *Store }

func (r *partnersRepo) List(ctx context.Context) ([]domain.PartnerIdentity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.partnersErr != nil {
		return nil, r.s.partnersErr
	}
	return append([]domain.PartnerIdentity(nil), r.s.partners...), nil
}

type adminsRepo struct{ s *Store }

func (r *adminsRepo) List(ctx context.Context) ([]domain.AdminIdentity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.adminsErr != nil {
		return nil, r.s.adminsErr
	}
	return append([]domain.AdminIdentity(nil), r.s.admins...), nil
}
