package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"litrevu/internal/logger"
	"litrevu/internal/model"
)

const (
	// FeedCachePrefix is the key prefix for composed feeds
	FeedCachePrefix = "feed:user:"

	// PostsCachePrefix is the key prefix for a user's own posts page
	PostsCachePrefix = "posts:user:"

	// GenerationPrefix is the key prefix for the per-user invalidation counter
	GenerationPrefix = "feedgen:user:"

	// DefaultTTL bounds how stale an entry can get when an invalidation is lost.
	DefaultTTL = 10 * time.Minute
)

// ErrStaleSnapshot is returned by SetFeed and SetPosts when the user was
// invalidated after the snapshot's generation was read.
var ErrStaleSnapshot = errors.New("feed snapshot is stale")

// FeedCache stores composed feeds as snapshots. A miss is reported as
// (nil, false, nil); callers read Generation before composing and pass it
// to Set, which refuses the write if an invalidation happened in between.
type FeedCache interface {
	Generation(ctx context.Context, userID int64) (int64, error)

	GetFeed(ctx context.Context, userID int64) ([]model.FeedItem, bool, error)
	SetFeed(ctx context.Context, userID int64, gen int64, items []model.FeedItem) error

	GetPosts(ctx context.Context, userID int64) ([]model.FeedItem, bool, error)
	SetPosts(ctx context.Context, userID int64, gen int64, items []model.FeedItem) error

	// Invalidate drops both snapshots for every given user and bumps their
	// generation, in one round trip.
	Invalidate(ctx context.Context, userIDs ...int64) error
}

// RedisFeedCache implements FeedCache with plain string keys holding JSON.
type RedisFeedCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewFeedCache creates a new FeedCache backed by Redis. A non-positive ttl
// falls back to DefaultTTL.
func NewFeedCache(client *redis.Client, ttl time.Duration) FeedCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisFeedCache{client: client, ttl: ttl, log: logger.Named("feed_cache")}
}

func feedKey(userID int64) string {
	return fmt.Sprintf("%s%d", FeedCachePrefix, userID)
}

func postsKey(userID int64) string {
	return fmt.Sprintf("%s%d", PostsCachePrefix, userID)
}

func generationKey(userID int64) string {
	return fmt.Sprintf("%s%d", GenerationPrefix, userID)
}

// Generation returns the user's invalidation counter, 0 before the first
// invalidation.
func (c *RedisFeedCache) Generation(ctx context.Context, userID int64) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get generation %d: %w", userID, err)
	}
	return gen, nil
}

func (c *RedisFeedCache) GetFeed(ctx context.Context, userID int64) ([]model.FeedItem, bool, error) {
	return c.get(ctx, feedKey(userID))
}

func (c *RedisFeedCache) SetFeed(ctx context.Context, userID int64, gen int64, items []model.FeedItem) error {
	return c.set(ctx, userID, feedKey(userID), gen, items)
}

func (c *RedisFeedCache) GetPosts(ctx context.Context, userID int64) ([]model.FeedItem, bool, error) {
	return c.get(ctx, postsKey(userID))
}

func (c *RedisFeedCache) SetPosts(ctx context.Context, userID int64, gen int64, items []model.FeedItem) error {
	return c.set(ctx, userID, postsKey(userID), gen, items)
}

func (c *RedisFeedCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	startTime := time.Now()

	keys := make([]string, 0, 2*len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, feedKey(id), postsKey(id))
	}

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	for _, id := range userIDs {
		pipe.Incr(ctx, generationKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("invalidate failed", zap.Int("users", len(userIDs)), zap.Error(err))
		return fmt.Errorf("invalidate feeds: %w", err)
	}

	c.log.Debug("invalidated",
		zap.Int64s("users", userIDs),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

func (c *RedisFeedCache) get(ctx context.Context, key string) ([]model.FeedItem, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}

	items := []model.FeedItem{}
	if err := json.Unmarshal(raw, &items); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		c.client.Del(ctx, key)
		c.log.Warn("dropping undecodable entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return items, true, nil
}

// set writes the snapshot only while the user's generation still equals
// gen. WATCH aborts the transaction if an Invalidate lands between the check
// and the write.
func (c *RedisFeedCache) set(ctx context.Context, userID int64, key string, gen int64, items []model.FeedItem) error {
	if items == nil {
		items = []model.FeedItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	guard := generationKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, guard).Int64()
		if errors.Is(err, redis.Nil) {
			current, err = 0, nil
		}
		if err != nil {
			return err
		}
		if current != gen {
			return ErrStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, guard)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("set %s: %w", key, ErrStaleSnapshot)
	default:
		return fmt.Errorf("set %s: %w", key, err)
	}
}
