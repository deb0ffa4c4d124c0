package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-shortlink/internal/analytics/usecase"
	"go-shortlink/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const insertClickSQL = `
INSERT INTO clicks (
    id, event_id, short_code, occurred_at, ip_address, user_agent, referer,
    destination_url, country_code, device_type, traffic_source, inserted_at
) VALUES (
    :id, :event_id, :short_code, :occurred_at, :ip_address, :user_agent, :referer,
    :destination_url, :country_code, :device_type, :traffic_source, :inserted_at
)
ON CONFLICT (event_id) DO NOTHING`

// ClickStore implements usecase.ClickStore on Postgres.
type ClickStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// Ensure ClickStore implements usecase.ClickStore at compile time
var _ usecase.ClickStore = (*ClickStore)(nil)

// NewClickStore creates a Postgres-backed click store.
func NewClickStore(db *sqlx.DB) *ClickStore {
	return &ClickStore{db: db, now: time.Now}
}

// Insert stores record, assigning its ID and InsertedAt.
func (s *ClickStore) Insert(ctx context.Context, record *domain.ClickRecord) (string, error) {
	const op = "postgres.ClickStore.Insert"

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	insertedAt := s.now().UTC()

	res, err := s.db.NamedExecContext(ctx, insertClickSQL, map[string]any{
		"id":              id.String(),
		"event_id":        record.EventID,
		"short_code":      record.ShortCode,
		"occurred_at":     record.OccurredAt.UTC(),
		"ip_address":      nullable(record.IPAddress),
		"user_agent":      nullable(record.UserAgent),
		"referer":         nullable(record.Referer),
		"destination_url": nullable(record.DestinationURL),
		"country_code":    record.CountryCode,
		"device_type":     record.DeviceType,
		"traffic_source":  record.TrafficSource,
		"inserted_at":     insertedAt,
	})
	if err != nil {
		return "", classify(op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return "", classify(op, err)
	}
	if affected == 0 {
		return "", fmt.Errorf("%s: event %s: %w", op, record.EventID, domain.ErrDuplicateRecord)
	}

	record.ID = id.String()
	record.InsertedAt = insertedAt
	return record.ID, nil
}

// CountByShortCode returns the number of clicks recorded for shortCode.
func (s *ClickStore) CountByShortCode(ctx context.Context, shortCode string) (int64, error) {
	const op = "postgres.ClickStore.CountByShortCode"

	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM clicks WHERE short_code = $1`, shortCode); err != nil {
		return 0, classify(op, err)
	}
	return count, nil
}

// CountGrouped returns click counts for shortCode grouped by dim, largest first.
func (s *ClickStore) CountGrouped(ctx context.Context, shortCode string, dim usecase.Dimension) ([]usecase.GroupCount, error) {
	const op = "postgres.ClickStore.CountGrouped"

	column, ok := dim.Column()
	if !ok {
		return nil, fmt.Errorf("%s: unknown dimension %q", op, dim)
	}

	// column comes from a fixed whitelist
	query := fmt.Sprintf(
		`SELECT %[1]s AS value, COUNT(*) AS count FROM clicks WHERE short_code = $1 GROUP BY %[1]s ORDER BY count DESC, value ASC`,
		column,
	)
	result := make([]usecase.GroupCount, 0)
	if err := s.db.SelectContext(ctx, &result, query, shortCode); err != nil {
		return nil, classify(op, err)
	}
	return result, nil
}

// Ping checks the database is reachable.
func (s *ClickStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify("postgres.ClickStore.Ping", err)
	}
	return nil
}

// classify maps SQLSTATE classes 22 (data exception) and 23 (integrity constraint
// violation) to domain.ErrPermanentData. Connection, resource, operator-intervention
// and transaction-rollback classes, and errors without a SQLSTATE, are transient.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			return domain.Permanent(op, err)
		}
	}
	return domain.Transient(op, err)
}

// nullable passes optional columns to the driver as NULL or a plain string.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
