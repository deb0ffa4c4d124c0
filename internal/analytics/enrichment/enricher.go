// Package enrichment derives device, traffic source and country attributes for
// click records.
package enrichment

import "go-shortlink/internal/domain"

// CountryResolver maps a client IP to an ISO country code.
type CountryResolver interface {
	ResolveCountry(ip *string) string
}

// Enricher fills the derived columns of a click record.
type Enricher struct {
	devices   *DeviceDetector
	referers  *RefererClassifier
	countries CountryResolver
}

// NewEnricher creates an Enricher. A nil countries resolver reports Unknown for
// every address.
func NewEnricher(countries CountryResolver) *Enricher {
	return &Enricher{
		devices:   NewDeviceDetector(),
		referers:  NewRefererClassifier(),
		countries: countries,
	}
}

// Enrich sets DeviceType, TrafficSource and CountryCode on r.
func (e *Enricher) Enrich(r *domain.ClickRecord) {
	r.DeviceType = e.devices.DetectDevice(r.UserAgent)
	r.TrafficSource = e.referers.ClassifySource(r.Referer)
	r.CountryCode = Unknown
	if e.countries != nil {
		r.CountryCode = e.countries.ResolveCountry(r.IPAddress)
	}
}
