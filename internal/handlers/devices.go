package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/DrewHollis/gatehouse/internal/auth"
	"github.com/DrewHollis/gatehouse/internal/models"
	pkghttp "github.com/DrewHollis/gatehouse/pkg/http"
	"github.com/google/uuid"
)

// DeviceRegistryInterface defines the registry surface the handlers consume
type DeviceRegistryInterface interface {
	ListDevicesForUser(ctx context.Context, userID uuid.UUID) ([]*models.Device, error)
	CountActiveDevices(ctx context.Context) (int64, error)
	ResetDevicesForUser(ctx context.Context, userID uuid.UUID, actorID uuid.UUID) (int64, error)
}

// DeviceHandler serves a user's own device listing
type DeviceHandler struct {
	registry DeviceRegistryInterface
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(registry DeviceRegistryInterface) *DeviceHandler {
	return &DeviceHandler{registry: registry}
}

// DeviceResponse represents a device in HTTP responses. The owning session
// id is deliberately absent.
type DeviceResponse struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	Browser        string    `json:"browser"`
	BrowserVersion string    `json:"browser_version"`
	Platform       string    `json:"platform"`
	DeviceClass    string    `json:"device_class"`
	IPAddress      string    `json:"ip_address"`
	IsActive       bool      `json:"is_active"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListMine handles GET /devices for the current user
func (h *DeviceHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "No active session")
		return
	}

	devices, err := h.registry.ListDevicesForUser(r.Context(), userID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	responses := make([]*DeviceResponse, 0, len(devices))
	for _, d := range devices {
		responses = append(responses, deviceToResponse(d))
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"devices": responses})
}

func deviceToResponse(d *models.Device) *DeviceResponse {
	return &DeviceResponse{
		ID:             d.ID.String(),
		DisplayName:    d.DisplayName,
		Browser:        d.Browser,
		BrowserVersion: d.BrowserVersion,
		Platform:       d.Platform,
		DeviceClass:    d.DeviceClass,
		IPAddress:      d.IPAddress,
		IsActive:       d.IsActive,
		LastActivityAt: d.LastActivityAt,
		CreatedAt:      d.CreatedAt,
	}
}
