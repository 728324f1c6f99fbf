package fingerprint_test

import (
	"net/http/httptest"
	"testing"

	"github.com/DrewHollis/gatehouse/internal/fingerprint"
	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCompute_Deterministic(t *testing.T) {
	attrs := fingerprint.Attributes{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, deflate, br",
		IPAddress:      "203.0.113.10",
	}

	first := fingerprint.Compute(attrs)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, fingerprint.Compute(attrs))
	}
	assert.Len(t, first, 64)
}

func TestCompute_DiffersOnAnySingleInput(t *testing.T) {
	base := fingerprint.Attributes{
		UserAgent:      "Mozilla/5.0",
		AcceptLanguage: "en-US",
		AcceptEncoding: "gzip",
		IPAddress:      "203.0.113.10",
	}
	baseline := fingerprint.Compute(base)

	variants := []fingerprint.Attributes{
		{UserAgent: "Mozilla/6.0", AcceptLanguage: "en-US", AcceptEncoding: "gzip", IPAddress: "203.0.113.10"},
		{UserAgent: "Mozilla/5.0", AcceptLanguage: "de-DE", AcceptEncoding: "gzip", IPAddress: "203.0.113.10"},
		{UserAgent: "Mozilla/5.0", AcceptLanguage: "en-US", AcceptEncoding: "br", IPAddress: "203.0.113.10"},
		{UserAgent: "Mozilla/5.0", AcceptLanguage: "en-US", AcceptEncoding: "gzip", IPAddress: "203.0.113.11"},
	}

	for _, v := range variants {
		assert.NotEqual(t, baseline, fingerprint.Compute(v))
	}
}

func TestCompute_AbsentHeadersAreEmptyStrings(t *testing.T) {
	// Absent inputs must not fail, just hash the empty tuple.
	got := fingerprint.Compute(fingerprint.Attributes{})
	assert.Len(t, got, 64)
	assert.Equal(t, got, fingerprint.Compute(fingerprint.Attributes{}))
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.Header.Set("User-Agent", "test-agent")
	r.Header.Set("Accept-Language", "fr-FR")
	r.Header.Set("Accept-Encoding", "gzip")

	attrs := fingerprint.FromRequest(r, "198.51.100.7")

	assert.Equal(t, "test-agent", attrs.UserAgent)
	assert.Equal(t, "fr-FR", attrs.AcceptLanguage)
	assert.Equal(t, "gzip", attrs.AcceptEncoding)
	assert.Equal(t, "198.51.100.7", attrs.IPAddress)
}

func TestParseDeviceInfo(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		wantClass string
	}{
		{
			name:      "desktop chrome",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			wantClass: models.DeviceClassDesktop,
		},
		{
			name:      "iphone safari",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			wantClass: models.DeviceClassMobile,
		},
		{
			name:      "ipad",
			userAgent: "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
			wantClass: models.DeviceClassTablet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := fingerprint.ParseDeviceInfo(tt.userAgent, "203.0.113.10")
			assert.Equal(t, tt.wantClass, info.DeviceClass)
			assert.Equal(t, "203.0.113.10", info.IPAddress)
			assert.NotEmpty(t, info.DisplayName)
		})
	}
}

func TestParseDeviceInfo_EmptyUserAgent(t *testing.T) {
	info := fingerprint.ParseDeviceInfo("", "203.0.113.10")
	assert.Equal(t, models.DeviceClassDesktop, info.DeviceClass)
	assert.Equal(t, "Unknown device", info.DisplayName)
}
