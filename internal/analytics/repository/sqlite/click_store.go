package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-shortlink/internal/analytics/usecase"
	"go-shortlink/internal/domain"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const insertClickSQL = `
INSERT INTO clicks (
    id, event_id, short_code, occurred_at, ip_address, user_agent, referer,
    destination_url, country_code, device_type, traffic_source, inserted_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (event_id) DO NOTHING`

// ClickStore implements usecase.ClickStore on SQLite.
type ClickStore struct {
	db  *sql.DB
	now func() time.Time
}

// Ensure ClickStore implements usecase.ClickStore at compile time
var _ usecase.ClickStore = (*ClickStore)(nil)

// NewClickStore creates a SQLite-backed click store.
func NewClickStore(db *sql.DB) *ClickStore {
	return &ClickStore{db: db, now: time.Now}
}

// Insert stores record, assigning its ID and InsertedAt.
func (s *ClickStore) Insert(ctx context.Context, record *domain.ClickRecord) (string, error) {
	const op = "sqlite.ClickStore.Insert"

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	insertedAt := s.now().UTC()

	res, err := s.db.ExecContext(ctx, insertClickSQL,
		id.String(),
		record.EventID,
		record.ShortCode,
		record.OccurredAt.UTC(),
		nullable(record.IPAddress),
		nullable(record.UserAgent),
		nullable(record.Referer),
		nullable(record.DestinationURL),
		record.CountryCode,
		record.DeviceType,
		record.TrafficSource,
		insertedAt,
	)
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
	const op = "sqlite.ClickStore.CountByShortCode"

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clicks WHERE short_code = ?`, shortCode).Scan(&count); err != nil {
		return 0, classify(op, err)
	}
	return count, nil
}

// CountGrouped returns click counts for shortCode grouped by dim, largest first.
func (s *ClickStore) CountGrouped(ctx context.Context, shortCode string, dim usecase.Dimension) ([]usecase.GroupCount, error) {
	const op = "sqlite.ClickStore.CountGrouped"

	column, ok := dim.Column()
	if !ok {
		return nil, fmt.Errorf("%s: unknown dimension %q", op, dim)
	}

	// column comes from a fixed whitelist
	query := fmt.Sprintf(
		`SELECT %[1]s, COUNT(*) FROM clicks WHERE short_code = ? GROUP BY %[1]s ORDER BY COUNT(*) DESC, %[1]s ASC`,
		column,
	)
	rows, err := s.db.QueryContext(ctx, query, shortCode)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	result := make([]usecase.GroupCount, 0)
	for rows.Next() {
		var gc usecase.GroupCount
		if err := rows.Scan(&gc.Value, &gc.Count); err != nil {
			return nil, classify(op, err)
		}
		result = append(result, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return result, nil
}

// Ping checks the database is reachable.
func (s *ClickStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify("sqlite.ClickStore.Ping", err)
	}
	return nil
}

// classify maps constraint, size and type errors to domain.ErrPermanentData and
// everything else (busy, locked, I/O, closed handle) to domain.ErrTransientInfra.
func classify(op string, err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_TOOBIG, sqlite3.SQLITE_MISMATCH:
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
