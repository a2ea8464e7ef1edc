package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"users-service/entities"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const userKeyPrefix = "users:"

// SetupRedis connects to the Redis server at url (redis://host:port/db).
func SetupRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logrus.WithField("addr", opts.Addr).Info("redis connection established")
	return rdb, nil
}

// RedisUserCache stores users as JSON under users:<id> with a TTL.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewRedisUserCache(client *redis.Client, ttl time.Duration) *RedisUserCache {
	return &RedisUserCache{client: client, ttl: ttl}
}

func UserKey(id uint) string {
	return fmt.Sprintf("%s%d", userKeyPrefix, id)
}

func (c *RedisUserCache) Get(ctx context.Context, id uint) (*entities.User, bool) {
	val, err := c.client.Get(ctx, UserKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.WithError(err).WithField("user_id", id).Warn("redis get failed")
		}
		c.misses.Add(1)
		return nil, false
	}

	var user entities.User
	if err := json.Unmarshal(val, &user); err != nil {
		logrus.WithError(err).WithField("user_id", id).Warn("discarding unreadable cache entry")
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &user, true
}

func (c *RedisUserCache) Set(ctx context.Context, user *entities.User) error {
	if user == nil || user.ID == 0 {
		return nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, UserKey(user.ID), data, c.ttl).Err()
}

// Flush deletes every users:* key. Other keys in the database are untouched.
func (c *RedisUserCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, userKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisUserCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"backend": "redis",
		"ttl":     c.ttl.String(),
		"hits":    c.hits.Load(),
		"misses":  c.misses.Load(),
	}
}
