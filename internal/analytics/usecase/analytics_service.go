package usecase

import (
	"context"
	"fmt"

	"go-shortlink/internal/domain"
)

// ClickSummary aggregates the clicks recorded for one short code.
type ClickSummary struct {
	ShortCode   string
	TotalClicks int64
	ByCountry   []GroupCount
	ByDevice    []GroupCount
	BySource    []GroupCount
}

type AnalyticsService struct {
	store ClickStore
}

func NewAnalyticsService(store ClickStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// GetClickCount returns total clicks for a short code. Unknown codes have zero clicks.
func (s *AnalyticsService) GetClickCount(ctx context.Context, shortCode string) (int64, error) {
	const op = "usecase.AnalyticsService.GetClickCount"

	if err := domain.ValidateShortCode(shortCode); err != nil {
		return 0, err
	}
	count, err := s.store.CountByShortCode(ctx, shortCode)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// GetSummary returns the total and per-dimension breakdowns for a short code.
func (s *AnalyticsService) GetSummary(ctx context.Context, shortCode string) (*ClickSummary, error) {
	const op = "usecase.AnalyticsService.GetSummary"

	total, err := s.GetClickCount(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	summary := &ClickSummary{ShortCode: shortCode, TotalClicks: total}
	groups := []struct {
		dim  Dimension
		dest *[]GroupCount
	}{
		{DimensionCountry, &summary.ByCountry},
		{DimensionDevice, &summary.ByDevice},
		{DimensionSource, &summary.BySource},
	}
	for _, g := range groups {
		counts, err := s.store.CountGrouped(ctx, shortCode, g.dim)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, g.dim, err)
		}
		*g.dest = counts
	}

	return summary, nil
}
