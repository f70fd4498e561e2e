// Package cache implements the verification cache: a short-lived,
// Redis-backed map from a raw token string to the session (and owning
// user) that last verified it. A hit lets the auth resolver skip the
// unverified decode, both store lookups and the signature check.
//
// The cache is strictly derived state. Deleting a session does not
// invalidate its entry; a stale hit can therefore outlive the session by
// at most the entry TTL. That window is an accepted toleration: the
// stores remain the single source of truth, and anything that touches a
// session as a resource (show, delete, listing) revalidates against them.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/identity-service/internal/model"
)

// prefix namespaces and versions every key so that a format change never
// reads entries written by an older build.
const prefix = "authcache:v1:"

// DefaultTTL bounds how long a verified token is trusted without
// re-checking the stores.
const DefaultTTL = 15 * time.Minute

// Entry is the cached value: the resolved session plus a snapshot of its
// owning user, so a hit needs no store access at all. The session secret
// travels with it; Redis is internal infrastructure, and the entry is
// never serialized toward a client.
type Entry struct {
	Session model.Session `json:"session"`
	User    model.User    `json:"user"`
}

// SessionCache wraps a Redis client with the key scheme and TTL. A nil
// client is a valid degraded mode in which every Get is a miss; the
// resolver then simply verifies every request against the stores.
type SessionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New builds a SessionCache. ttl <= 0 selects DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SessionCache{rdb: rdb, ttl: ttl}
}

// TTL reports the configured entry lifetime, which also bounds the
// staleness window after a session is deleted.
func (c *SessionCache) TTL() time.Duration { return c.ttl }

func key(token string) string {
	sum := sha1.Sum([]byte(token))
	return fmt.Sprintf("%s%x", prefix, sum[:])
}

// Get looks the raw token up. ok is false on miss, on decode failure, and
// on any Redis error; the caller falls back to full verification.
func (c *SessionCache) Get(ctx context.Context, token string) (Entry, bool) {
	if c == nil || c.rdb == nil {
		return Entry{}, false
	}
	raw, err := c.rdb.Get(ctx, key(token)).Bytes()
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false
	}
	return e, true
}

// Set stores the entry under the raw token. Two requests verifying the
// same token concurrently write the same value, so the overwrite race is
// harmless. Errors are swallowed: the cache is an optimization and a
// failed write only costs the next request a verification.
func (c *SessionCache) Set(ctx context.Context, token string, e Entry) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, key(token), raw, c.ttl)
}

// Clear removes every entry written by this cache. Intended for tests
// and teardown; production code never bulk-invalidates.
func (c *SessionCache) Clear(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
