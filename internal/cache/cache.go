package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrStorage marks failures reading or writing the persistent slot.
var ErrStorage = errors.New("storage error")

// Cache is a persistent key-value slot holding opaque bytes.
// Get returns (nil, false, nil) when the key has never been written.
// Set overwrites unconditionally; entries never expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Pinger is implemented by backends that can report reachability. Used by health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendMemcached = "memcached"
	BackendRedis     = "redis"
	BackendSQLite    = "sqlite"
)

// Options selects and configures a backend for Open. Only the fields of the
// chosen backend are read.
type Options struct {
	Backend string

	FilePath string

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SQLitePath string
}

// Open constructs the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendMemory:
		return NewInMemoryCache(), nil
	case BackendFile, "":
		c, err := NewFileCache(opts.FilePath)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendMemcached:
		c, err := NewMemcachedCache(opts.MemcachedAddrs, opts.MemcachedTimeout, opts.MemcachedMaxIdleConns)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendSQLite:
		c, err := NewSQLiteCache(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrStorage, opts.Backend)
	}
}

// Close releases backend resources if c holds any.
func Close(c Cache) error {
	if closer, ok := c.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// InMemoryCache implements Cache with a process-local map. Contents do not
// survive a restart; intended for tests and ephemeral deployments.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string][]byte),
	}
}

// Get returns a copy of the stored bytes.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *InMemoryCache) Ping(ctx context.Context) error {
	return ctx.Err()
}
