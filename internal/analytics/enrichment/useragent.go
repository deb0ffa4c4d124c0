package enrichment

import (
	ua "github.com/mileusna/useragent"
)

const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceBot     = "Bot"
	Unknown       = "Unknown"
)

// DeviceDetector detects device type from User-Agent strings.
type DeviceDetector struct{}

// NewDeviceDetector creates a new DeviceDetector.
func NewDeviceDetector() *DeviceDetector {
	return &DeviceDetector{}
}

// DetectDevice returns DeviceDesktop, DeviceMobile, DeviceTablet, DeviceBot or Unknown.
// Bots are reported before form factor.
func (d *DeviceDetector) DetectDevice(userAgent *string) string {
	if userAgent == nil || *userAgent == "" {
		return Unknown
	}

	parsed := ua.Parse(*userAgent)
	switch {
	case parsed.Bot:
		return DeviceBot
	case parsed.Tablet:
		return DeviceTablet
	case parsed.Mobile:
		return DeviceMobile
	case parsed.Desktop:
		return DeviceDesktop
	default:
		return Unknown
	}
}
