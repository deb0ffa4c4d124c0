// Package codestore holds short code to destination URL mappings.
package codestore

import (
	"context"
	"time"
)

// Store is a key-value mapping from short code to destination URL with optional expiry.
// Get returns domain.ErrNotFound for absent or expired codes. Infrastructure failures
// wrap domain.ErrTransientInfra.
type Store interface {
	Exists(ctx context.Context, code string) (bool, error)
	// SetWithExpiry writes unconditionally. A zero ttl means no expiry.
	SetWithExpiry(ctx context.Context, code, destinationURL string, ttl time.Duration) error
	// SetIfAbsent writes only when code is not present and reports whether it wrote.
	SetIfAbsent(ctx context.Context, code, destinationURL string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, code string) (string, error)
	// Delete removes code and returns the number of removed keys.
	Delete(ctx context.Context, code string) (int64, error)
	Ping(ctx context.Context) error
}

// Compile-time interface checks
var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
