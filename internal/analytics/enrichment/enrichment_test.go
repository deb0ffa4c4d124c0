package enrichment

import (
	"testing"

	"go-shortlink/internal/domain"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestDetectDevice(t *testing.T) {
	tests := []struct {
		name      string
		userAgent *string
		expected  string
	}{
		{"nil", nil, Unknown},
		{"empty", lo.ToPtr(""), Unknown},
		{"desktop chrome", lo.ToPtr("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"), DeviceDesktop},
		{"iphone", lo.ToPtr("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"), DeviceMobile},
		{"ipad", lo.ToPtr("Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"), DeviceTablet},
		{"googlebot", lo.ToPtr("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"), DeviceBot},
	}

	d := NewDeviceDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.DetectDevice(tt.userAgent))
		})
	}
}

func TestClassifySource(t *testing.T) {
	tests := []struct {
		name     string
		referer  *string
		expected string
	}{
		{"nil", nil, SourceDirect},
		{"empty", lo.ToPtr(""), SourceDirect},
		{"no host", lo.ToPtr("not a url"), SourceDirect},
		{"google", lo.ToPtr("https://www.google.com/search?q=x"), SourceSearch},
		{"regional search subdomain", lo.ToPtr("https://search.yahoo.com/"), SourceSearch},
		{"gemini is ai not search", lo.ToPtr("https://gemini.google.com/app"), SourceAI},
		{"social", lo.ToPtr("https://old.reddit.com/r/golang"), SourceSocial},
		{"lookalike host is referral", lo.ToPtr("https://notgoogle.com/"), SourceReferral},
		{"blog", lo.ToPtr("https://blog.example.net/post"), SourceReferral},
	}

	c := NewRefererClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.ClassifySource(tt.referer))
		})
	}
}

type staticCountries string

func (s staticCountries) ResolveCountry(*string) string { return string(s) }

func TestEnricher_Enrich(t *testing.T) {
	// Arrange
	record := &domain.ClickRecord{
		ShortCode: "abc1234",
		IPAddress: lo.ToPtr("8.8.8.8"),
		UserAgent: lo.ToPtr("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"),
		Referer:   lo.ToPtr("https://x.com/someone/status/1"),
	}

	// Act
	NewEnricher(staticCountries("US")).Enrich(record)

	// Assert
	assert.Equal(t, DeviceBot, record.DeviceType)
	assert.Equal(t, SourceSocial, record.TrafficSource)
	assert.Equal(t, "US", record.CountryCode)
}

func TestEnricher_WithoutGeoIP_ReportsUnknownCountry(t *testing.T) {
	// Arrange
	record := &domain.ClickRecord{ShortCode: "abc1234", IPAddress: lo.ToPtr("8.8.8.8")}

	// Act
	NewEnricher(nil).Enrich(record)

	// Assert
	assert.Equal(t, Unknown, record.CountryCode)
	assert.Equal(t, Unknown, record.DeviceType)
	assert.Equal(t, SourceDirect, record.TrafficSource)
}
