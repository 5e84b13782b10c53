package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/estensen/roi-dashboard/internal/feed"
	"github.com/estensen/roi-dashboard/internal/models"
)

var ErrMiss = errors.New("cache miss")

const (
	KindTransactions = "transactions"
	KindInvestments  = "investments"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// RedisCache stores decoded feeds as JSON.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects and pings Redis.
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return &RedisCache{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func Key(kind, owner string) string {
	return fmt.Sprintf("feed:%s:%s", kind, owner)
}

// Put stores v under feed:<kind>:<owner>. ttl <= 0 means no expiry.
func (r *RedisCache) Put(ctx context.Context, kind, owner string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding %s feed: %w", kind, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, Key(kind, owner), data, ttl).Err()
}

// Get decodes the cached feed into v. It returns ErrMiss when the key is absent.
func (r *RedisCache) Get(ctx context.Context, kind, owner string, v any) error {
	data, err := r.client.Get(ctx, Key(kind, owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error decoding cached %s feed: %w", kind, err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context, owner string) error {
	return r.client.Del(ctx, Key(KindTransactions, owner), Key(KindInvestments, owner)).Err()
}

// Source is a cache-through feed.Source. Cache errors other than a miss are
// logged and fall through to the upstream source.
type Source struct {
	upstream feed.Source
	cache    *RedisCache
	owner    string
	ttl      time.Duration
	logger   *slog.Logger
}

func NewSource(upstream feed.Source, cache *RedisCache, owner string, ttl time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{upstream: upstream, cache: cache, owner: owner, ttl: ttl, logger: logger}
}

func (s *Source) FetchTransactions(ctx context.Context) ([]models.Transaction, error) {
	return through(ctx, s, KindTransactions, s.upstream.FetchTransactions)
}

func (s *Source) FetchInvestments(ctx context.Context) ([]models.Investment, error) {
	return through(ctx, s, KindInvestments, s.upstream.FetchInvestments)
}

func through[T any](ctx context.Context, s *Source, kind string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	var cached []T
	err := s.cache.Get(ctx, kind, s.owner, &cached)
	switch {
	case err == nil:
		s.logger.Debug("feed cache hit", "kind", kind, "owner", s.owner, "count", len(cached))
		return cached, nil
	case !errors.Is(err, ErrMiss):
		s.logger.Warn("feed cache read failed", "kind", kind, "error", err)
	}

	fresh, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, kind, s.owner, fresh, s.ttl); err != nil {
		s.logger.Warn("feed cache write failed", "kind", kind, "error", err)
	}
	return fresh, nil
}
