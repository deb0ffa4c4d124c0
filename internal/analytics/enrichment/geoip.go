package enrichment

import (
	"net"

	geoip2 "github.com/oschwald/geoip2-golang"
)

// GeoIPResolver resolves IP addresses to country codes using a GeoIP2 database.
type GeoIPResolver struct {
	db *geoip2.Reader
}

// NewGeoIPResolver opens the GeoIP2 or GeoLite2 country database at dbPath.
func NewGeoIPResolver(dbPath string) (*GeoIPResolver, error) {
	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &GeoIPResolver{db: db}, nil
}

// Close closes the GeoIP database reader.
func (g *GeoIPResolver) Close() error {
	return g.db.Close()
}

// ResolveCountry returns the ISO country code for ip, or Unknown for missing,
// private or unresolvable addresses.
func (g *GeoIPResolver) ResolveCountry(ip *string) string {
	if ip == nil {
		return Unknown
	}
	parsed := net.ParseIP(*ip)
	if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() {
		return Unknown
	}

	record, err := g.db.Country(parsed)
	if err != nil || record.Country.IsoCode == "" {
		return Unknown
	}
	return record.Country.IsoCode
}
