package throttle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one sorted set per key, scored by failure time in
// milliseconds, so several server processes share the same counts.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

// NewRedisStore expires idle keys after ttl, which should be at least the
// throttle window.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "newsletter:login_failures",
		ttl:    ttl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Add(ctx context.Context, key string, at time.Time) error {
	member := strconv.FormatInt(at.UnixNano(), 10) + ":" + uuid.NewString()

	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, s.key(key), redis.Z{Score: float64(at.UnixMilli()), Member: member})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(key), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("throttle redis add: %w", err)
	}
	return nil
}

func (s *RedisStore) Window(ctx context.Context, key string, from, to time.Time) ([]time.Time, error) {
	fromMs := strconv.FormatInt(from.UnixMilli(), 10)
	toMs := strconv.FormatInt(to.UnixMilli(), 10)

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, s.key(key), "-inf", "("+fromMs)
	rangeCmd := pipe.ZRangeByScoreWithScores(ctx, s.key(key), &redis.ZRangeBy{Min: fromMs, Max: toMs})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("throttle redis window: %w", err)
	}

	zs, err := rangeCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("throttle redis window: %w", err)
	}
	out := make([]time.Time, 0, len(zs))
	for _, z := range zs {
		out = append(out, time.UnixMilli(int64(z.Score)))
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("throttle redis clear: %w", err)
	}
	return nil
}
