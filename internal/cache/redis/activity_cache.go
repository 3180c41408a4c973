package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/easybetio/easybet/internal/domain"
)

const activityTTL = 30 * time.Second

// ActivityCache implements domain.ActivityCache using JSON-serialized
// activity snapshots under a short TTL.
//
// Key schema:
//
//	activity:{id} - string value containing JSON
//
// The TTL is deliberately short: the ledger is the source of truth and the
// cache only absorbs read bursts between writes.
type ActivityCache struct {
	rdb *redis.Client
}

// NewActivityCache creates an ActivityCache backed by the given Client.
func NewActivityCache(c *Client) *ActivityCache {
	return &ActivityCache{rdb: c.Underlying()}
}

func activityKey(id uint64) string {
	return "activity:" + strconv.FormatUint(id, 10)
}

// Set stores an activity snapshot in the cache.
func (ac *ActivityCache) Set(ctx context.Context, a domain.Activity) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("redis: marshal activity %d: %w", a.ID, err)
	}

	if err := ac.rdb.Set(ctx, activityKey(a.ID), data, activityTTL).Err(); err != nil {
		return fmt.Errorf("redis: set activity %d: %w", a.ID, err)
	}
	return nil
}

// Get retrieves an activity snapshot by its id.
// It returns domain.ErrNotFound when the key does not exist.
func (ac *ActivityCache) Get(ctx context.Context, id uint64) (domain.Activity, error) {
	data, err := ac.rdb.Get(ctx, activityKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Activity{}, domain.ErrNotFound
		}
		return domain.Activity{}, fmt.Errorf("redis: get activity %d: %w", id, err)
	}

	var a domain.Activity
	if err := json.Unmarshal(data, &a); err != nil {
		return domain.Activity{}, fmt.Errorf("redis: unmarshal activity %d: %w", id, err)
	}
	return a, nil
}

// Invalidate removes an activity snapshot from the cache.
func (ac *ActivityCache) Invalidate(ctx context.Context, id uint64) error {
	if err := ac.rdb.Del(ctx, activityKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate activity %d: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ActivityCache = (*ActivityCache)(nil)
