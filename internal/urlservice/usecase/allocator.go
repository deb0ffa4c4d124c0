package usecase

import (
	"context"
	"fmt"
	"time"

	"go-shortlink/internal/codestore"
	"go-shortlink/internal/domain"
	"go-shortlink/internal/infra/metrics"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	// Alphanumeric (a-z, A-Z, 0-9), 62 characters, case-sensitive
	codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	DefaultCodeLength  = 7
	DefaultMaxAttempts = 10
)

// AllocatorConfig controls random code generation and default expiry.
type AllocatorConfig struct {
	CodeLength  int
	MaxAttempts int
	// DefaultTTL applies when a request carries no TTL. Zero means no expiry.
	DefaultTTL time.Duration
}

// AllocateRequest asks for a new mapping. An empty CustomCode requests a random code.
type AllocateRequest struct {
	CustomCode     string
	DestinationURL string
	TTL            time.Duration
}

// Allocator registers new short codes in the code store.
type Allocator struct {
	store  codestore.Store
	cfg    AllocatorConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewAllocator creates an allocator writing to store.
func NewAllocator(store codestore.Store, cfg AllocatorConfig, logger *zap.Logger) *Allocator {
	if cfg.CodeLength < domain.MinShortCodeLength || cfg.CodeLength > domain.MaxShortCodeLength {
		cfg.CodeLength = DefaultCodeLength
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Allocator{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used to compute expiry timestamps.
func (a *Allocator) WithClock(now func() time.Time) *Allocator {
	a.now = now
	return a
}

// Allocate validates the request and registers the mapping with an atomic
// insert-if-absent write. A taken custom code fails with domain.ErrConflict; random
// codes are regenerated on collision up to MaxAttempts.
func (a *Allocator) Allocate(ctx context.Context, req AllocateRequest) (*domain.ShortCodeMapping, error) {
	if err := domain.ValidateDestinationURL(req.DestinationURL); err != nil {
		return nil, err
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = a.cfg.DefaultTTL
	}

	if req.CustomCode != "" {
		return a.allocateCustom(ctx, req.CustomCode, req.DestinationURL, ttl)
	}
	return a.allocateRandom(ctx, req.DestinationURL, ttl)
}

func (a *Allocator) allocateCustom(ctx context.Context, code, destinationURL string, ttl time.Duration) (*domain.ShortCodeMapping, error) {
	const op = "usecase.Allocator.allocateCustom"

	if err := domain.ValidateShortCode(code); err != nil {
		metrics.AllocationsTotal.WithLabelValues("custom", "invalid").Inc()
		return nil, err
	}

	written, err := a.store.SetIfAbsent(ctx, code, destinationURL, ttl)
	if err != nil {
		metrics.AllocationsTotal.WithLabelValues("custom", "error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !written {
		metrics.AllocationsTotal.WithLabelValues("custom", "conflict").Inc()
		return nil, fmt.Errorf("%s: %q: %w", op, code, domain.ErrConflict)
	}

	metrics.AllocationsTotal.WithLabelValues("custom", "ok").Inc()
	a.logger.Info("short code allocated",
		zap.String("short_code", code),
		zap.String("kind", "custom"),
	)
	return a.mapping(code, destinationURL, ttl), nil
}

func (a *Allocator) allocateRandom(ctx context.Context, destinationURL string, ttl time.Duration) (*domain.ShortCodeMapping, error) {
	const op = "usecase.Allocator.allocateRandom"

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		code, err := gonanoid.Generate(codeAlphabet, a.cfg.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		written, err := a.store.SetIfAbsent(ctx, code, destinationURL, ttl)
		if err != nil {
			metrics.AllocationsTotal.WithLabelValues("random", "error").Inc()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !written {
			a.logger.Debug("short code collision, regenerating",
				zap.String("short_code", code),
				zap.Int("attempt", attempt),
			)
			continue
		}

		metrics.AllocationsTotal.WithLabelValues("random", "ok").Inc()
		a.logger.Info("short code allocated",
			zap.String("short_code", code),
			zap.String("kind", "random"),
			zap.Int("attempt", attempt),
		)
		return a.mapping(code, destinationURL, ttl), nil
	}

	metrics.AllocationsTotal.WithLabelValues("random", "exhausted").Inc()
	a.logger.Error("short code space exhausted; alphabet or length too small for load",
		zap.Int("attempts", a.cfg.MaxAttempts),
		zap.Int("code_length", a.cfg.CodeLength),
	)
	return nil, fmt.Errorf("%s: %w after %d attempts", op, domain.ErrExhaustedAttempts, a.cfg.MaxAttempts)
}

// IsAvailable reports whether code is well-formed and not yet allocated.
func (a *Allocator) IsAvailable(ctx context.Context, code string) (bool, error) {
	const op = "usecase.Allocator.IsAvailable"

	if err := domain.ValidateShortCode(code); err != nil {
		return false, err
	}
	exists, err := a.store.Exists(ctx, code)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return !exists, nil
}

func (a *Allocator) mapping(code, destinationURL string, ttl time.Duration) *domain.ShortCodeMapping {
	m := &domain.ShortCodeMapping{Code: code, DestinationURL: destinationURL}
	if ttl > 0 {
		expiresAt := a.now().UTC().Add(ttl)
		m.ExpiresAt = &expiresAt
	}
	return m
}
