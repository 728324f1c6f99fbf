// Package fingerprint derives stable device identifiers from request metadata.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Attributes are the request inputs that participate in the authoritative
// fingerprint. Absent headers are empty strings; they never cause an error.
// Client-supplied signals like timezone or screen resolution stay advisory
// and are deliberately excluded from the hash.
type Attributes struct {
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
	IPAddress      string
}

// Compute returns a deterministic SHA-256 fingerprint for the attribute tuple.
// Identical inputs always produce the identical value; there is no time or
// randomness component.
func Compute(attrs Attributes) string {
	combined := strings.Join([]string{
		attrs.UserAgent,
		attrs.AcceptLanguage,
		attrs.AcceptEncoding,
	}, "|") + "|" + attrs.IPAddress

	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// FromRequest extracts fingerprint attributes from an HTTP request. The
// client IP must be resolved by the caller (trusted-proxy aware) and passed in.
func FromRequest(r *http.Request, clientIP string) Attributes {
	return Attributes{
		UserAgent:      r.UserAgent(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		IPAddress:      clientIP,
	}
}
