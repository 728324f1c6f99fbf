package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/DrewHollis/gatehouse/internal/auth"
	"github.com/DrewHollis/gatehouse/internal/models"
	pkghttp "github.com/DrewHollis/gatehouse/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AuditQueryInterface defines the audit reads the admin surface needs
type AuditQueryInterface interface {
	EventsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuthEvent, error)
	EventsByType(ctx context.Context, eventType string, limit, offset int) ([]*models.AuthEvent, error)
	FailedEvents(ctx context.Context, limit, offset int) ([]*models.AuthEvent, error)
}

// UserAdminInterface defines the account settings the admin surface manages
type UserAdminInterface interface {
	SetSingleDeviceLogin(ctx context.Context, id uuid.UUID, enabled bool) error
}

// AdminHandler serves operator endpoints for device and audit inspection
type AdminHandler struct {
	registry DeviceRegistryInterface
	audit    AuditQueryInterface
	users    UserAdminInterface
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(registry DeviceRegistryInterface, audit AuditQueryInterface, users UserAdminInterface) *AdminHandler {
	return &AdminHandler{registry: registry, audit: audit, users: users}
}

// DeviceCount handles GET /admin/devices/count
func (h *AdminHandler) DeviceCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.registry.CountActiveDevices(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"active_devices": count})
}

// ResetUserDevices handles DELETE /admin/users/{id}/devices. It deactivates
// every device the user has so their next login registers fresh.
func (h *AdminHandler) ResetUserDevices(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid user ID")
		return
	}

	actorID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "No active session")
		return
	}

	deactivated, err := h.registry.ResetDevicesForUser(r.Context(), userID, actorID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"deactivated": deactivated})
}

// EnforcementRequest represents the request body for toggling single-device
// enforcement on an account
type EnforcementRequest struct {
	Enabled bool `json:"enabled"`
}

// SetEnforcement handles PUT /admin/users/{id}/enforcement. Enabling
// enforcement also releases the user's active devices: an account that
// accrued several active devices while unenforced would otherwise have every
// device blocking every other, with no login able to succeed. The next login
// registers the single active device fresh.
func (h *AdminHandler) SetEnforcement(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid user ID")
		return
	}

	var req EnforcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	actorID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "No active session")
		return
	}

	if err := h.users.SetSingleDeviceLogin(r.Context(), userID, req.Enabled); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	var released int64
	if req.Enabled {
		released, err = h.registry.ResetDevicesForUser(r.Context(), userID, actorID)
		if err != nil {
			pkghttp.WriteInternalError(w, "Internal server error")
			return
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":             userID.String(),
		"single_device_login": req.Enabled,
		"devices_released":    released,
	})
}

// AuthEventResponse represents an audit record in HTTP responses
type AuthEventResponse struct {
	ID          string                 `json:"id"`
	ActorUserID *string                `json:"actor_user_id,omitempty"`
	EventType   string                 `json:"event_type"`
	Outcome     string                 `json:"outcome"`
	IPAddress   string                 `json:"ip_address"`
	UserAgent   string                 `json:"user_agent"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// ListEvents handles GET /admin/events with optional type, user_id,
// failures, limit, and offset query parameters
func (h *AdminHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parseIntParam(q.Get("limit"), 50)
	offset := parseIntParam(q.Get("offset"), 0)

	var (
		events []*models.AuthEvent
		err    error
	)
	switch {
	case q.Get("user_id") != "":
		var userID uuid.UUID
		userID, err = uuid.Parse(q.Get("user_id"))
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid user ID")
			return
		}
		events, err = h.audit.EventsForUser(r.Context(), userID, limit, offset)
	case q.Get("type") != "":
		events, err = h.audit.EventsByType(r.Context(), q.Get("type"), limit, offset)
	default:
		events, err = h.audit.FailedEvents(r.Context(), limit, offset)
	}
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	responses := make([]*AuthEventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, eventToResponse(e))
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": responses})
}

func eventToResponse(e *models.AuthEvent) *AuthEventResponse {
	resp := &AuthEventResponse{
		ID:         e.ID.String(),
		EventType:  e.EventType,
		Outcome:    e.Outcome,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		Metadata:   e.Metadata,
		OccurredAt: e.OccurredAt,
	}
	if e.ActorUserID != nil {
		id := e.ActorUserID.String()
		resp.ActorUserID = &id
	}
	return resp
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
