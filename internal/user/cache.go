package user

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"communityhub/internal/platform/redis"
)

// ProfileCache keeps serialized profiles in Redis. With a nil client every
// method is a no-op, so the service code reads the same with caching on or
// off. Cache failures degrade to store reads and are logged at debug only.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewProfileCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl, logger: logger}
}

func profileKey(id string) string { return "user:profile:" + id }

func (c *ProfileCache) Get(ctx context.Context, id string) (User, bool) {
	if c == nil || c.client == nil {
		return User{}, false
	}
	data, err := c.client.Get(ctx, profileKey(id)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.DebugContext(ctx, "profile cache read failed", "error", err)
		}
		return User{}, false
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return User{}, false
	}
	return u, true
}

func (c *ProfileCache) Set(ctx context.Context, u User) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, profileKey(u.ID.String()), data, c.ttl).Err(); err != nil {
		c.logger.DebugContext(ctx, "profile cache write failed", "error", err)
	}
}

func (c *ProfileCache) Evict(ctx context.Context, id string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, profileKey(id)).Err(); err != nil {
		c.logger.DebugContext(ctx, "profile cache evict failed", "error", err)
	}
}
