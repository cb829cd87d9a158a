package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
	"github.com/pnvb/volunteer-portal/pkg/sealx"
)

// DefaultTTL bounds a session's lifetime. The browser source kept sessions
// until logout; a server has to bound them.
const DefaultTTL = 24 * time.Hour

// restoreTimeout bounds the snapshot read during a restore so a slow backend
// cannot stall navigation forever.
const restoreTimeout = 3 * time.Second

// Manager owns every session cell and its durable snapshot. It is the single
// writer of session state: handlers and guards go through the Manager (or the
// AuthSession facade on top of it) and only ever read cells directly.
type Manager struct {
	snaps  Snapshots
	sealer *sealx.Sealer
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	cells map[string]*Cell
}

// NewManager builds a Manager over the given snapshot store. A non-positive
// ttl falls back to DefaultTTL.
func NewManager(snaps Snapshots, sealer *sealx.Sealer, ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		snaps:  snaps,
		sealer: sealer,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		cells:  make(map[string]*Cell),
	}
}

// Attach returns the cell for the session ID, creating it and kicking off the
// snapshot restore on first sight. The returned cell may still be pending;
// readers that need a settled answer wait via First or Ready.
func (m *Manager) Attach(sid string) *Cell {
	m.mu.Lock()
	cell, ok := m.cells[sid]
	if !ok {
		cell = NewCell()
		m.cells[sid] = cell
	}
	m.mu.Unlock()

	if !ok {
		go m.restore(sid, cell)
	}
	return cell
}

// Peek returns the cell for the session ID without triggering a restore, or
// nil when the session is unknown to this process.
func (m *Manager) Peek(sid string) *Cell {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells[sid]
}

// Set resolves the identity into a session snapshot, persists it, then
// publishes it on the cell. Persistence failures are returned without
// publishing, so an unreachable snapshot store never yields a session that
// would silently vanish on the next restore.
func (m *Manager) Set(ctx context.Context, sid string, id domain.Identity) (domain.Session, error) {
	sealed, err := m.seal(id)
	if err != nil {
		return domain.Session{}, err
	}

	expiresAt := m.now().Add(m.ttl)
	role := domain.CanonicalRole(id)

	cell := m.Attach(sid)
	cell.writeMu.Lock()
	defer cell.writeMu.Unlock()

	snap := Snapshot{Identity: sealed, Role: role.String(), ExpiresAt: expiresAt}
	if err := m.snaps.Put(ctx, sid, snap); err != nil {
		return domain.Session{}, err
	}

	return cell.Set(id, expiresAt), nil
}

// Clear resets the session to anonymous in memory and removes its snapshot.
// The in-memory reset always happens; a failed snapshot delete is logged and
// retried by the next restore finding expired/corrupt state. Clear takes the
// same per-cell write lock as Set, so a clear that arrives while a login is
// mid-persist waits it out and then wins.
func (m *Manager) Clear(ctx context.Context, sid string) {
	cell := m.Attach(sid)
	cell.writeMu.Lock()
	defer cell.writeMu.Unlock()

	cell.Clear()
	if err := m.snaps.Delete(ctx, sid); err != nil {
		m.logger.Error("session snapshot delete failed", "sid", sid, "error", err)
	}
}

// Evict drops the in-memory cell, leaving any persisted snapshot in place.
// The next Attach restores from storage again, which is exactly what a page
// reload looks like from the server side.
func (m *Manager) Evict(sid string) {
	m.mu.Lock()
	delete(m.cells, sid)
	m.mu.Unlock()
}

// Housekeep purges expired snapshots and evicts idle cells. Run periodically.
func (m *Manager) Housekeep(ctx context.Context) {
	now := m.now()

	if err := m.snaps.PurgeExpired(ctx, now); err != nil {
		m.logger.Error("snapshot purge failed", "error", err)
	}

	m.mu.Lock()
	for sid, cell := range m.cells {
		if sess := cell.Current(); sess != nil && sess.Expired(now) {
			cell.Clear()
		}
		if cell.Idle() {
			delete(m.cells, sid)
		}
	}
	m.mu.Unlock()
}

// Ping verifies the snapshot store is reachable.
func (m *Manager) Ping(ctx context.Context) error { return m.snaps.Ping(ctx) }

// Close releases the snapshot store.
func (m *Manager) Close() error { return m.snaps.Close() }

func (m *Manager) seal(id domain.Identity) (string, error) {
	encoded, err := domain.EncodeIdentity(id)
	if err != nil {
		return "", err
	}
	return m.sealer.Seal(encoded), nil
}

// restore reads the persisted snapshot and resolves the cell with the
// reconstructed session, or anonymous. Corrupt, partial, tampered, expired
// and inconsistent snapshots are all discarded (both entries together) and
// only logged; a failed restore means "log in again", never an error to the
// caller.
func (m *Manager) restore(sid string, cell *Cell) {
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	snap, ok, err := m.snaps.Get(ctx, sid)
	if err != nil {
		// Store unavailable is not corruption: keep the snapshot, come up
		// anonymous for now.
		m.logger.Error("session restore read failed", "sid", sid, "error", err)
		cell.resolve(nil)
		return
	}
	if !ok {
		cell.resolve(nil)
		return
	}

	sess := m.decodeSnapshot(sid, snap)
	if sess == nil {
		m.discard(ctx, sid)
	}
	cell.resolve(sess)
}

// decodeSnapshot validates a stored snapshot and rebuilds the session.
// Returns nil for anything that must be treated as corrupt or stale.
func (m *Manager) decodeSnapshot(sid string, snap Snapshot) *domain.Session {
	if snap.Partial() {
		m.logger.Warn("session snapshot partially present, discarding", "sid", sid)
		return nil
	}
	if snap.ExpiresAt.IsZero() || m.now().After(snap.ExpiresAt) {
		return nil
	}

	encoded, err := m.sealer.Open(snap.Identity)
	if err != nil {
		m.logger.Warn("session snapshot failed authentication, discarding", "sid", sid)
		return nil
	}

	id, err := domain.DecodeIdentity(encoded)
	if err != nil {
		m.logger.Warn("session snapshot unparsable, discarding", "sid", sid, "error", err)
		return nil
	}

	role := domain.NormalizeRole(snap.Role)
	if role == domain.RoleNone || role != domain.CanonicalRole(id) {
		m.logger.Warn("session snapshot role inconsistent, discarding",
			"sid", sid, "stored_role", snap.Role)
		return nil
	}

	return &domain.Session{Identity: id, Role: role, ExpiresAt: snap.ExpiresAt}
}

func (m *Manager) discard(ctx context.Context, sid string) {
	if err := m.snaps.Delete(ctx, sid); err != nil {
		m.logger.Error("corrupt snapshot delete failed", "sid", sid, "error", err)
	}
}
