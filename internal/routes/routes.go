package routes

import (
	"log/slog"

	"github.com/DrewHollis/gatehouse/internal/auth"
	"github.com/DrewHollis/gatehouse/internal/handlers"
	"github.com/DrewHollis/gatehouse/internal/middleware"
	pkghttp "github.com/DrewHollis/gatehouse/pkg/http"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	deviceHandler *handlers.DeviceHandler,
	adminHandler *handlers.AdminHandler,
	sessionManager *auth.SessionManager,
	toucher middleware.ActivityToucher,
	ipConfig *pkghttp.IPConfig,
	logger *slog.Logger,
) {
	rateLimitConfig := middleware.DefaultLoginRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(rateLimitConfig, ipConfig)).Post("/auth/login", authHandler.Login)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessionManager))
		r.Use(middleware.TouchDeviceActivity(toucher, ipConfig, logger))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/devices", deviceHandler.ListMine)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole("admin"))

			r.Get("/admin/devices/count", adminHandler.DeviceCount)
			r.Delete("/admin/users/{id}/devices", adminHandler.ResetUserDevices)
			r.Put("/admin/users/{id}/enforcement", adminHandler.SetEnforcement)
			r.Get("/admin/events", adminHandler.ListEvents)
		})
	})
}
