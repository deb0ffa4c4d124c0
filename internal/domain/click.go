package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/samber/lo"
)

const (
	MaxUserAgentLength = 1024
	MaxRefererLength   = 2048
	MaxEventIDLength   = 64

	// UnknownValue is the sentinel emitters use for missing client metadata.
	UnknownValue = "unknown"
)

// ClickRecord is a persisted click event.
type ClickRecord struct {
	ID             string    `db:"id"`
	EventID        string    `db:"event_id"`
	ShortCode      string    `db:"short_code"`
	OccurredAt     time.Time `db:"occurred_at"`
	IPAddress      *string   `db:"ip_address"`
	UserAgent      *string   `db:"user_agent"`
	Referer        *string   `db:"referer"`
	DestinationURL *string   `db:"destination_url"`
	CountryCode    string    `db:"country_code"`
	DeviceType     string    `db:"device_type"`
	TrafficSource  string    `db:"traffic_source"`
	InsertedAt     time.Time `db:"inserted_at"`
}

// Validate checks the record against the storage schema.
func (r ClickRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ShortCode, shortCodeRules...),
		validation.Field(&r.OccurredAt, validation.Required.Error("timestamp is required")),
		validation.Field(&r.IPAddress, is.IP),
		validation.Field(&r.UserAgent, validation.RuneLength(0, MaxUserAgentLength)),
		validation.Field(&r.Referer, validation.RuneLength(0, MaxRefererLength)),
		validation.Field(&r.DestinationURL, destinationRules...),
	)
}

// NormalizeOptional trims s and maps blank and "unknown" values to nil.
func NormalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if strings.EqualFold(v, UnknownValue) {
		return nil
	}
	return lo.EmptyableToPtr(v)
}

// DeriveEventID builds a stable dedupe key for events that arrive without a message id.
func DeriveEventID(shortCode string, occurredAt time.Time, ip, userAgent *string) string {
	h := sha256.New()
	for _, part := range []string{
		shortCode,
		occurredAt.UTC().Format(time.RFC3339Nano),
		lo.FromPtr(ip),
		lo.FromPtr(userAgent),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
