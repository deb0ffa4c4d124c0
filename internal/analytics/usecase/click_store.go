package usecase

import (
	"context"

	"go-shortlink/internal/domain"
)

// Dimension is a derived click attribute that clicks can be grouped by.
type Dimension string

const (
	DimensionCountry Dimension = "country"
	DimensionDevice  Dimension = "device"
	DimensionSource  Dimension = "source"
)

// Column returns the storage column for d and false for unknown dimensions.
func (d Dimension) Column() (string, bool) {
	switch d {
	case DimensionCountry:
		return "country_code", true
	case DimensionDevice:
		return "device_type", true
	case DimensionSource:
		return "traffic_source", true
	default:
		return "", false
	}
}

// GroupCount represents a count for a single group value (country, device, source).
type GroupCount struct {
	Value string `db:"value"`
	Count int64  `db:"count"`
}

// ClickStore persists click records. Insert returns domain.ErrDuplicateRecord when a
// record with the same event id exists, a domain.ErrPermanentData wrap for rows the
// store can never accept, and a domain.ErrTransientInfra wrap otherwise.
type ClickStore interface {
	Insert(ctx context.Context, record *domain.ClickRecord) (string, error)
	CountByShortCode(ctx context.Context, shortCode string) (int64, error)
	CountGrouped(ctx context.Context, shortCode string, dim Dimension) ([]GroupCount, error)
	Ping(ctx context.Context) error
}
