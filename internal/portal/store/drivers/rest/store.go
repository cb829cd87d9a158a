package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	"github.com/pnvb/volunteer-portal/internal/portal/store"
)

// DefaultFetchTimeout bounds a single collection fetch. The upstream API has
// no timeouts of its own; without this a hung backend would stall every login
// indefinitely.
const DefaultFetchTimeout = 5 * time.Second

const (
	candidatesPath = "/users"
	partnersPath   = "/partners"
	adminsPath     = "/admins"
)

// Store fetches the identity collections from the upstream REST backend.
type Store struct {
	base    string
	client  *http.Client
	timeout time.Duration
}

// NewStore builds a REST-backed identity store for the given base URL.
// A non-positive timeout falls back to DefaultFetchTimeout.
func NewStore(baseURL string, timeout time.Duration) (*Store, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("rest: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("rest: base url %q must be absolute", baseURL)
	}

	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	return &Store{
		base:    strings.TrimRight(parsed.String(), "/"),
		client:  &http.Client{},
		timeout: timeout,
	}, nil
}

func (s *Store) Candidates() store.Candidates { return &candidatesRepo{s} }
func (s *Store) Partners() store.Partners     { return &partnersRepo{s} }
func (s *Store) Admins() store.Admins         { return &adminsRepo{s} }

func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// fetch issues a bounded GET and decodes the collection body into out.
// Any transport or decode failure maps onto store.ErrUnavailable so the
// resolver can degrade that collection to empty.
func (s *Store) fetch(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrUnavailable, path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d", store.ErrUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", store.ErrUnavailable, path, err)
	}
	return nil
}

type candidatesRepo struct{ s *Store }

func (r *candidatesRepo) List(ctx context.Context) ([]domain.CandidateIdentity, error) {
	var out []domain.CandidateIdentity
	if err := r.s.fetch(ctx, candidatesPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type partnersRepo struct{ s *Store }

func (r *partnersRepo) List(ctx context.Context) ([]domain.PartnerIdentity, error) {
	var out []domain.PartnerIdentity
	if err := r.s.fetch(ctx, partnersPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type adminsRepo struct{ s *Store }

func (r *adminsRepo) List(ctx context.Context) ([]domain.AdminIdentity, error) {
	var out []domain.AdminIdentity
	if err := r.s.fetch(ctx, adminsPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}
