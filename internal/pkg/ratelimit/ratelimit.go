package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultMaxRequests is how many requests an identity may make per window.
	DefaultMaxRequests = 3
	// DefaultWindow is the length of the trailing window.
	DefaultWindow = 10 * time.Minute

	// DriverMemory keeps windows in process memory.
	DriverMemory = "memory"
	// DriverRedis keeps windows in redis sorted sets.
	DriverRedis = "redis"
)

// ErrUnknownDriver indicates an unsupported limiter driver.
var ErrUnknownDriver = errors.New("ratelimit: unknown driver")

// Limiter is per-key sliding-window admission control.
type Limiter interface {
	// Allow reports whether key may proceed now and records the request when it may.
	// A rejected request is not recorded.
	Allow(ctx context.Context, key string) (bool, error)
	// Len returns the number of keys currently tracked.
	Len(ctx context.Context) (int, error)
}

// Config holds the window parameters shared by every driver.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRequests < 1 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}

// FactoryOptions groups what each driver needs.
type FactoryOptions struct {
	Config Config
	Memory MemoryOptions
	Redis  RedisOptions
}

// NewFromDriver constructs a Limiter by driver name.
func NewFromDriver(driver string, opts FactoryOptions) (Limiter, error) {
	switch strings.TrimSpace(driver) {
	case DriverMemory, "":
		return NewMemory(opts.Config, opts.Memory), nil
	case DriverRedis:
		return NewRedis(opts.Config, opts.Redis)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
