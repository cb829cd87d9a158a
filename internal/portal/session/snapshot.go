package session

import (
	"context"
	"time"
)

// Snapshot is the persisted form of a session: two co-located entries, the
// sealed serialized identity and the canonical role, plus the absolute
// expiry. Both entries are written together on Set and removed together on
// Clear; a state where only one survives is corrupt and gets discarded on
// restore.
type Snapshot struct {
	Identity  string // sealed identity envelope
	Role      string // canonical role recorded at Set time
	ExpiresAt time.Time
}

// Partial reports whether either of the two entries is missing. A partial
// snapshot is corrupt by definition and must be discarded whole.
func (s Snapshot) Partial() bool {
	return s.Identity == "" || s.Role == ""
}

// Snapshots is durable storage for session snapshots keyed by session ID.
// Implementations must store and delete the two snapshot entries together.
type Snapshots interface {
	// Get returns the snapshot for the session, reporting whether one exists.
	Get(ctx context.Context, sid string) (Snapshot, bool, error)

	// Put writes the snapshot, replacing any previous one.
	Put(ctx context.Context, sid string, snap Snapshot) error

	// Delete removes the snapshot. Deleting a missing snapshot is not an
	// error.
	Delete(ctx context.Context, sid string) error

	// PurgeExpired removes every snapshot past its expiry (housekeeping).
	PurgeExpired(ctx context.Context, now time.Time) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
