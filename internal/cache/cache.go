// Package cache holds short-lived flow state: pending authorization
// requests between the authorize and consent steps.
//
// Drivers:
//   - memory: in-process, for development and single-node deployments
//   - redis:  shared, for multi-replica deployments
package cache

import (
	"context"
	"time"
)

// Client is the minimal cache surface the services need.
type Client interface {
	// Get returns the value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for ttl. ttl must be > 0; flow state never lives
	// without an expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }

// ErrNotFound is returned by Get for absent or expired keys.
var ErrNotFound = errNotFound{}

// New builds a cache client for the configured driver.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
