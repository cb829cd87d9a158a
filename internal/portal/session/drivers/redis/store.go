package redis

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pnvb/volunteer-portal/internal/portal/session"
)

const keyPrefix = "portal:session:"

// Store persists session snapshots in Redis. The two snapshot entries live in
// one hash so they are always written and deleted together; expiry is
// enforced twice, as a hash field for the manager and as a key TTL so Redis
// reclaims abandoned sessions on its own.
type Store struct {
	client *goredis.Client
}

func NewStore(client *goredis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) key(sid string) string { return keyPrefix + sid }

func (s *Store) Get(ctx context.Context, sid string) (session.Snapshot, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(sid)).Result()
	if err != nil {
		return session.Snapshot{}, false, err
	}
	if len(fields) == 0 {
		return session.Snapshot{}, false, nil
	}

	snap := session.Snapshot{
		Identity: fields["identity"],
		Role:     fields["role"],
	}
	if raw, ok := fields["expires_at"]; ok {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil && unix > 0 {
			snap.ExpiresAt = time.Unix(unix, 0).UTC()
		}
	}
	return snap, true, nil
}

func (s *Store) Put(ctx context.Context, sid string, snap session.Snapshot) error {
	key := s.key(sid)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"identity":   snap.Identity,
		"role":       snap.Role,
		"expires_at": snap.ExpiresAt.Unix(),
	})
	if !snap.ExpiresAt.IsZero() {
		pipe.ExpireAt(ctx, key, snap.ExpiresAt)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Delete(ctx context.Context, sid string) error {
	return s.client.Del(ctx, s.key(sid)).Err()
}

// PurgeExpired is a no-op: Redis key TTLs already reclaim expired snapshots.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) error { return nil }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error { return s.client.Close() }
