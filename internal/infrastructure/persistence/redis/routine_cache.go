// Package redis implements the Redis read-through cache for the routine log.
// The full log is re-read on every progression update, so caching the list
// keeps the hot path off Postgres; a short TTL plus explicit invalidation on
// append keeps it honest.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration

	// CacheTTL bounds staleness when an invalidation is missed.
	CacheTTL time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		CacheTTL:     60 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewClient creates a Redis client from the configuration.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheMiss is returned when the requested key is not found in cache.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheSerialization is returned when serialization fails.
	ErrCacheSerialization = errors.New("cache: serialization failed")
)

// PrefixRoutines is the key prefix for cached routine logs.
const PrefixRoutines = "routines:"

// ══════════════════════════════════════════════════════════════════════════════
// ROUTINE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// RoutineCache is a read-through cache over a routine.Log. Cache failures
// degrade to the underlying log, never to an error: Redis being down slows
// the engine, it doesn't stop it.
type RoutineCache struct {
	client *redis.Client
	log    routine.Log
	ttl    time.Duration
	key    string
	lg     *logger.Logger
}

// NewRoutineCache wraps a routine.Log with a Redis cache for the given user.
func NewRoutineCache(client *redis.Client, log routine.Log, userID string, ttl time.Duration, lg *logger.Logger) *RoutineCache {
	return &RoutineCache{
		client: client,
		log:    log,
		ttl:    ttl,
		key:    PrefixRoutines + userID,
		lg:     lg.With(logger.Component("routine_cache")),
	}
}

// Append writes through to the underlying log and drops the cached list.
func (c *RoutineCache) Append(ctx context.Context, r *routine.Record) error {
	if err := c.log.Append(ctx, r); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// GetAll returns the cached list or reads through on a miss.
func (c *RoutineCache) GetAll(ctx context.Context) ([]*routine.Record, error) {
	records, err := c.getCached(ctx)
	if err == nil {
		return records, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.lg.Warn("routine cache read failed", logger.Err(err))
	}

	records, err = c.log.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	c.setCached(ctx, records)
	return records, nil
}

// Invalidate drops the cached routine list.
func (c *RoutineCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		c.lg.Warn("routine cache invalidation failed", logger.Err(err))
	}
}

func (c *RoutineCache) getCached(ctx context.Context) ([]*routine.Record, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var records []*routine.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return records, nil
}

func (c *RoutineCache) setCached(ctx context.Context, records []*routine.Record) {
	data, err := json.Marshal(records)
	if err != nil {
		c.lg.Warn("routine cache marshal failed", logger.Err(err))
		return
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		c.lg.Warn("routine cache write failed", logger.Err(err))
	}
}
