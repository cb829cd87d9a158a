package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pnvb/volunteer-portal/internal/portal/session"
)

// Store keeps session snapshots in process memory. Used by tests and local
// development; it honours the same two-entries-together contract as the
// durable drivers and allows tests to plant partial or mangled snapshots.
type Store struct {
	mu    sync.RWMutex
	snaps map[string]session.Snapshot
}

func NewStore() *Store {
	return &Store{snaps: make(map[string]session.Snapshot)}
}

func (s *Store) Get(ctx context.Context, sid string) (session.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[sid]
	return snap, ok, nil
}

func (s *Store) Put(ctx context.Context, sid string, snap session.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[sid] = snap
	return nil
}

func (s *Store) Delete(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, sid)
	return nil
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, snap := range s.snaps {
		if !snap.ExpiresAt.IsZero() && now.After(snap.ExpiresAt) {
			delete(s.snaps, sid)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len reports the number of stored snapshots (test helper).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}
