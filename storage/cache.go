package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"prism-board/domain"
)

// SnapshotLoader loads a full board snapshot from the source of truth.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, boardID string) (domain.BoardSnapshot, error)
}

// SnapshotCache wraps a SnapshotLoader with a Redis cache-aside layer.
type SnapshotCache struct {
	base  SnapshotLoader
	redis *redis.Client
	ttl   time.Duration
}

// NewSnapshotCache creates a caching loader using the provided Redis client and TTL.
// A nil client or zero TTL disables caching.
func NewSnapshotCache(base SnapshotLoader, client *redis.Client, ttl time.Duration) *SnapshotCache {
	if base == nil {
		panic("storage.NewSnapshotCache: base loader is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &SnapshotCache{base: base, redis: client, ttl: ttl}
}

// LoadSnapshot serves the board from Redis when present, otherwise from the base loader.
// A loaded snapshot is written back only if no Evict ran for the board since the miss.
func (c *SnapshotCache) LoadSnapshot(ctx context.Context, boardID string) (domain.BoardSnapshot, error) {
	if snap, ok := c.load(ctx, boardID); ok {
		return snap, nil
	}
	version, versionOK := c.version(ctx, boardID)
	snap, err := c.base.LoadSnapshot(ctx, boardID)
	if err != nil {
		return domain.BoardSnapshot{}, err
	}
	if versionOK {
		c.store(ctx, boardID, version, snap)
	}
	return snap, nil
}

// Evict drops cached snapshots of the given boards and bumps their versions so loads
// already in flight do not write their result back.
func (c *SnapshotCache) Evict(ctx context.Context, boardIDs ...string) error {
	if c.redis == nil || len(boardIDs) == 0 {
		return nil
	}
	_, err := c.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range boardIDs {
			p.Incr(ctx, snapshotVersionKey(id))
			p.Del(ctx, snapshotCacheKey(id))
		}
		return nil
	})
	return err
}

func (c *SnapshotCache) load(ctx context.Context, boardID string) (domain.BoardSnapshot, bool) {
	if c.redis == nil {
		return domain.BoardSnapshot{}, false
	}
	data, err := c.redis.Get(ctx, snapshotCacheKey(boardID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the database without failing.
			_ = c.redis.Del(ctx, snapshotCacheKey(boardID)).Err()
		}
		return domain.BoardSnapshot{}, false
	}
	var snap domain.BoardSnapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		_ = c.redis.Del(ctx, snapshotCacheKey(boardID)).Err()
		return domain.BoardSnapshot{}, false
	}
	return snap, true
}

func (c *SnapshotCache) version(ctx context.Context, boardID string) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	v, err := c.redis.Get(ctx, snapshotVersionKey(boardID)).Int64()
	if err == redis.Nil {
		return 0, true
	}
	return v, err == nil
}

func (c *SnapshotCache) store(ctx context.Context, boardID string, version int64, snap domain.BoardSnapshot) {
	data, err := sonic.Marshal(snap)
	if err != nil {
		return
	}
	versionKey := snapshotVersionKey(boardID)
	_ = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, snapshotCacheKey(boardID), data, c.ttl)
			return nil
		})
		return err
	}, versionKey)
}

func snapshotCacheKey(boardID string) string {
	return "board:" + boardID
}

func snapshotVersionKey(boardID string) string {
	return "board:" + boardID + ":version"
}
