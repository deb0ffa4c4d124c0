package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the resolution path and the ingestion path.
var (
	ErrInvalidFormat     = errors.New("invalid format")
	ErrConflict          = errors.New("short code already allocated")
	ErrExhaustedAttempts = errors.New("short code allocation exhausted attempts")
	ErrNotFound          = errors.New("short code not found")
	ErrTransientInfra    = errors.New("infrastructure temporarily unavailable")
	ErrPermanentData     = errors.New("data permanently invalid")
)

var (
	ErrInvalidShortCode = fmt.Errorf("%w: short code", ErrInvalidFormat)
	ErrInvalidURL       = fmt.Errorf("%w: destination url", ErrInvalidFormat)

	// ErrDuplicateRecord is returned by click stores when the event was already persisted.
	ErrDuplicateRecord = errors.New("click record already exists")
)

// Transient wraps err so that errors.Is(err, ErrTransientInfra) holds.
func Transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransientInfra, err)
}

// Permanent wraps err so that errors.Is(err, ErrPermanentData) holds.
func Permanent(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPermanentData, err)
}
