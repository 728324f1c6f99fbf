package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DrewHollis/gatehouse/internal/auth"
	"github.com/DrewHollis/gatehouse/internal/fingerprint"
	pkghttp "github.com/DrewHollis/gatehouse/pkg/http"
	"github.com/google/uuid"
)

// ActivityToucher marks the calling device as recently seen
type ActivityToucher interface {
	TouchActivity(ctx context.Context, userID uuid.UUID, fp string, sessionID *string) error
}

// TouchDeviceActivity refreshes the active device's last-seen timestamp on
// every authenticated request. The device is matched by fingerprint, so a
// request from an unexpected device simply touches nothing. Deactivated
// devices are never revived by this path.
func TouchDeviceActivity(toucher ActivityToucher, ipConfig *pkghttp.IPConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.SessionFromContext(r.Context())
			if ok {
				userID, err := uuid.Parse(claims.UserID)
				if err == nil {
					clientIP := pkghttp.ExtractClientIP(r, ipConfig)
					fp := fingerprint.Compute(fingerprint.FromRequest(r, clientIP))
					sessionID := claims.SessionID()
					if err := toucher.TouchActivity(r.Context(), userID, fp, &sessionID); err != nil {
						logger.Warn("failed to touch device activity",
							slog.String("user_id", userID.String()),
							slog.String("error", err.Error()),
						)
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
