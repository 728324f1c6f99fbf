package fingerprint

import (
	"fmt"
	"strings"

	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/mssola/user_agent"
)

// ParseDeviceInfo builds the recognized device attributes from a user agent
// string and the client IP.
func ParseDeviceInfo(userAgent, ipAddress string) models.DeviceInfo {
	ua := user_agent.New(userAgent)

	browser, version := ua.Browser()
	platform := ua.OS()

	class := models.DeviceClassDesktop
	if isTabletUserAgent(userAgent) {
		class = models.DeviceClassTablet
	} else if ua.Mobile() {
		class = models.DeviceClassMobile
	}

	return models.DeviceInfo{
		DisplayName:    displayName(browser, platform),
		Browser:        browser,
		BrowserVersion: version,
		Platform:       platform,
		DeviceClass:    class,
		IPAddress:      ipAddress,
	}
}

func displayName(browser, platform string) string {
	switch {
	case browser != "" && platform != "":
		return fmt.Sprintf("%s on %s", browser, platform)
	case browser != "":
		return browser
	case platform != "":
		return platform
	default:
		return "Unknown device"
	}
}

// isTabletUserAgent covers the tablet markers mssola/user_agent lumps in with
// mobile devices.
func isTabletUserAgent(userAgent string) bool {
	lower := strings.ToLower(userAgent)
	for _, keyword := range []string{"ipad", "tablet", "kindle", "silk/"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
