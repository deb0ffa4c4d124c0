package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go-shortlink/internal/domain"
)

// ClickEvent represents one resolution of a short code.
// Published by the url-service, consumed by the ingestor. Never mutated after publish.
type ClickEvent struct {
	ShortCode      string    `json:"shortCode"`
	Timestamp      time.Time `json:"timestamp"`
	IPAddress      *string   `json:"ipAddress"`
	UserAgent      *string   `json:"userAgent"`
	Referer        *string   `json:"referer"`
	DestinationURL *string   `json:"destinationUrl"`
}

// Encode serializes the event to its JSON wire format.
func (e ClickEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeClickEvent parses a wire payload. Malformed payloads wrap domain.ErrPermanentData.
func DecodeClickEvent(data []byte) (ClickEvent, error) {
	const op = "events.DecodeClickEvent"

	var e ClickEvent
	if !json.Valid(data) || !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return ClickEvent{}, fmt.Errorf("%s: %w: payload is not a JSON object", op, domain.ErrPermanentData)
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return ClickEvent{}, domain.Permanent(op, err)
	}
	return e, nil
}
