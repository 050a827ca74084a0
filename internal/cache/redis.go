package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "refer:"

// SlugCache maps a public slug to its slug id. Whether the slug is active and
// where it points is always read from the database.
type SlugCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSlugCache(rdb *redis.Client, ttl time.Duration) *SlugCache {
	return &SlugCache{rdb: rdb, ttl: ttl}
}

// Connect builds a client and checks it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func Key(slug string) string {
	return keyPrefix + slug
}

func (c *SlugCache) Get(ctx context.Context, slug string) (int64, bool, error) {
	raw, err := c.rdb.Get(ctx, Key(slug)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read cache for %q: %w", slug, err)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("decode cached slug id for %q: %w", slug, err)
	}
	return id, true, nil
}

func (c *SlugCache) Set(ctx context.Context, slug string, slugID int64) error {
	if err := c.rdb.Set(ctx, Key(slug), strconv.FormatInt(slugID, 10), c.ttl).Err(); err != nil {
		return fmt.Errorf("write cache for %q: %w", slug, err)
	}
	return nil
}

func (c *SlugCache) Invalidate(ctx context.Context, slug string) error {
	if err := c.rdb.Del(ctx, Key(slug)).Err(); err != nil {
		return fmt.Errorf("invalidate cache for %q: %w", slug, err)
	}
	return nil
}
