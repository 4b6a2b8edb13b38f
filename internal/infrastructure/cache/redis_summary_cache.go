package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"loan-engine/internal/config"
	"loan-engine/internal/domain/loan"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "loan:summary"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSummaryCache stores summaries as JSON under one key per loan and
// business date, plus a set per loan naming those keys for invalidation. The
// last invalidated loan version is kept beside them so a reader that loaded an
// older version cannot write its summary back afterwards.
type RedisSummaryCache struct {
	client redisClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ loan.SummaryCache = (*RedisSummaryCache)(nil)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to reach redis at %s: %w", cfg.Addr, err)
	}
	logger.Info("Redis connection established", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}

func NewRedisSummaryCache(client redisClient, ttl time.Duration, logger *slog.Logger) *RedisSummaryCache {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisSummaryCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "RedisSummaryCache"),
	}
}

func summaryKey(loanID int64, businessDate time.Time) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, loanID, businessDate.Format(loan.DateLayout))
}

func indexKey(loanID int64) string {
	return fmt.Sprintf("%s:%d:keys", keyPrefix, loanID)
}

func versionKey(loanID int64) string {
	return fmt.Sprintf("%s:%d:version", keyPrefix, loanID)
}

func (c *RedisSummaryCache) Get(ctx context.Context, loanID int64, businessDate time.Time) (*loan.Summary, error) {
	raw, err := c.client.Get(ctx, summaryKey(loanID, businessDate)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, loan.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get summary for loan %d: %w", loanID, err)
	}

	var summary loan.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		c.logger.WarnContext(ctx, "Discarding undecodable cached summary", "loanID", loanID, "error", err)
		return nil, loan.ErrCacheMiss
	}
	return &summary, nil
}

// Set writes the summary, then drops it again if an invalidation for a newer
// version landed meanwhile. Invalidate records the version before collecting
// keys, so either it sees this key or this check sees its version.
func (c *RedisSummaryCache) Set(ctx context.Context, loanID, version int64, businessDate time.Time, summary loan.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary for loan %d: %w", loanID, err)
	}

	key := summaryKey(loanID, businessDate)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	index := indexKey(loanID)
	if err := c.client.SAdd(ctx, index, key).Err(); err != nil {
		return fmt.Errorf("redis sadd %s: %w", index, err)
	}
	if c.ttl > 0 {
		if err := c.client.Expire(ctx, index, c.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire %s: %w", index, err)
		}
	}

	latest, err := c.client.Get(ctx, versionKey(loanID)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", versionKey(loanID), err)
	}
	if latest > version {
		c.logger.DebugContext(ctx, "Dropping summary of a superseded loan version", "loanID", loanID, "version", version, "latest", latest)
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis del %s: %w", key, err)
		}
	}
	return nil
}

func (c *RedisSummaryCache) Invalidate(ctx context.Context, loanID, version int64) error {
	if err := c.client.Set(ctx, versionKey(loanID), strconv.FormatInt(version, 10), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", versionKey(loanID), err)
	}

	index := indexKey(loanID)
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis smembers %s: %w", index, err)
	}

	keys = append(keys, index)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del summaries of loan %d: %w", loanID, err)
	}
	c.logger.DebugContext(ctx, "Invalidated cached summaries", "loanID", loanID, "keys", len(keys)-1)
	return nil
}
