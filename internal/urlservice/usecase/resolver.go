package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-shortlink/internal/codestore"
	"go-shortlink/internal/domain"
	"go-shortlink/internal/infra/metrics"
	"go-shortlink/internal/shared/events"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ClickContext is the client metadata captured with a resolution.
type ClickContext struct {
	ClientIP  string
	UserAgent string
	Referer   string
}

// ClickSubmitter accepts click events for asynchronous publication. Submit must not
// block; it returns false when the event was dropped.
type ClickSubmitter interface {
	Submit(evt events.ClickEvent) bool
}

// Resolver looks up short codes and emits a click event for each successful resolution.
type Resolver struct {
	store     codestore.Store
	submitter ClickSubmitter
	logger    *zap.Logger
	now       func() time.Time
}

// NewResolver creates a resolver reading from store and handing events to submitter.
func NewResolver(store codestore.Store, submitter ClickSubmitter, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:     store,
		submitter: submitter,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the clock used to timestamp click events.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns the destination for code and queues a click event. Event
// publication never delays or fails the resolution.
func (r *Resolver) Resolve(ctx context.Context, code string, click ClickContext) (string, error) {
	destination, err := r.Lookup(ctx, code)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues(resolutionResult(err)).Inc()
		return "", err
	}
	metrics.ResolutionsTotal.WithLabelValues("hit").Inc()

	evt := events.ClickEvent{
		ShortCode:      code,
		Timestamp:      r.now().UTC(),
		IPAddress:      domain.NormalizeOptional(lo.ToPtr(click.ClientIP)),
		UserAgent:      domain.NormalizeOptional(lo.ToPtr(click.UserAgent)),
		Referer:        domain.NormalizeOptional(lo.ToPtr(click.Referer)),
		DestinationURL: lo.ToPtr(destination),
	}
	if !r.submitter.Submit(evt) {
		r.logger.Warn("click event not queued", zap.String("short_code", code))
	}

	return destination, nil
}

// Lookup returns the destination for code without recording a click.
func (r *Resolver) Lookup(ctx context.Context, code string) (string, error) {
	const op = "usecase.Resolver.Lookup"

	if err := domain.ValidateShortCode(code); err != nil {
		return "", err
	}

	destination, err := r.store.Get(ctx, code)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("code store lookup failed", zap.String("short_code", code), zap.Error(err))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return destination, nil
}

// Delete removes code. Deleting an absent code succeeds.
func (r *Resolver) Delete(ctx context.Context, code string) error {
	const op = "usecase.Resolver.Delete"

	if err := domain.ValidateShortCode(code); err != nil {
		return err
	}

	removed, err := r.store.Delete(ctx, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.logger.Info("short code deleted",
		zap.String("short_code", code),
		zap.Bool("existed", removed > 0),
	)
	return nil
}

func resolutionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidFormat):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "miss"
	default:
		return "error"
	}
}
