package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/DrewHollis/gatehouse/pkg/http"
	"github.com/stretchr/testify/assert"
)

func newLimitedHandler(t *testing.T, perMinute int, ipConfig *pkghttp.IPConfig) http.Handler {
	t.Helper()

	limited := RateLimitByIP(RateLimitConfig{RequestsPerMinute: perMinute}, ipConfig)
	return limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimitByIP_KeysOnPeerAddress(t *testing.T) {
	handler := newLimitedHandler(t, 3, &pkghttp.IPConfig{})

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest("POST", "/auth/login", nil)
		r.RemoteAddr = "203.0.113.7:4433"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "203.0.113.7:4433"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitByIP_SpoofedHeadersDoNotRotateKey(t *testing.T) {
	handler := newLimitedHandler(t, 3, &pkghttp.IPConfig{})

	// One peer rotating forwarding headers still burns a single budget.
	spoofed := []string{"66.66.66.66", "66.66.66.67", "66.66.66.68", "66.66.66.69"}
	var last *httptest.ResponseRecorder
	for _, fake := range spoofed {
		r := httptest.NewRequest("POST", "/auth/login", nil)
		r.RemoteAddr = "203.0.113.7:4433"
		r.Header.Set("X-Real-IP", fake)
		r.Header.Set("X-Forwarded-For", fake)
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, r)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}

func TestRateLimitByIP_TrustedProxySeparatesClients(t *testing.T) {
	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	handler := newLimitedHandler(t, 3, ipConfig)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest("POST", "/auth/login", nil)
		r.RemoteAddr = "10.0.0.5:443"
		r.Header.Set("X-Forwarded-For", "198.51.100.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// A different client behind the same proxy gets its own budget.
	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "10.0.0.5:443"
	r.Header.Set("X-Forwarded-For", "198.51.100.2")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
