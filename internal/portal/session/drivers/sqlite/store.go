package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pnvb/volunteer-portal/internal/portal/session"

	_ "modernc.org/sqlite"
)

// Store persists session snapshots in a local SQLite database. This is the
// default backend: it survives process restarts without any external
// dependency.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the snapshot database at the given DSN.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Get(ctx context.Context, sid string) (session.Snapshot, bool, error) {
	// NULL columns read as empty strings so the manager sees a partial
	// snapshot rather than a scan error.
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(identity, ''), COALESCE(role, ''), expires_at
		FROM session_snapshots WHERE sid = ?`, sid)

	var (
		snap      session.Snapshot
		expiresAt int64
	)
	if err := row.Scan(&snap.Identity, &snap.Role, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return session.Snapshot{}, false, nil
		}
		return session.Snapshot{}, false, err
	}

	if expiresAt > 0 {
		snap.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	}
	return snap, true, nil
}

func (s *Store) Put(ctx context.Context, sid string, snap session.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_snapshots (sid, identity, role, expires_at, updated_at)
		VALUES (?, ?, ?, ?, unixepoch())
		ON CONFLICT(sid) DO UPDATE SET
			identity = excluded.identity,
			role = excluded.role,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		sid, snap.Identity, snap.Role, snap.ExpiresAt.Unix())
	return err
}

func (s *Store) Delete(ctx context.Context, sid string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE sid = ?`, sid)
	return err
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_snapshots WHERE expires_at > 0 AND expires_at < ?`, now.Unix())
	return err
}
