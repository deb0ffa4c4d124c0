package domain

import "time"

// ShortCodeMapping is a short code registered in the code store.
type ShortCodeMapping struct {
	Code           string
	DestinationURL string
	ExpiresAt      *time.Time
}

// IsExpired reports whether the mapping had expired at now.
func (m ShortCodeMapping) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}
