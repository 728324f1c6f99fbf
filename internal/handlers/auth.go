package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DrewHollis/gatehouse/internal/auth"
	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/DrewHollis/gatehouse/internal/services"
	pkghttp "github.com/DrewHollis/gatehouse/pkg/http"
	"github.com/google/uuid"
)

// AuthGateInterface defines the login decision surface the handler consumes
type AuthGateInterface interface {
	AttemptLogin(ctx context.Context, email, password string, reqCtx services.RequestContext) (*services.LoginResult, *services.LoginDenial, error)
	Logout(ctx context.Context, userID uuid.UUID, sessionID string, reqCtx services.RequestContext) error
}

// AuthHandler handles login and logout requests
type AuthHandler struct {
	gate     AuthGateInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(gate AuthGateInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		gate:     gate,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	SessionToken string          `json:"session_token"`
	User         *UserResponse   `json:"user"`
	Device       *DeviceResponse `json:"device"`
}

// UserResponse represents a user in HTTP responses
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// DenialDetails carries self-resolution context for a denied login
type DenialDetails struct {
	RetryAfterSeconds int                   `json:"retry_after_seconds,omitempty"`
	BlockingDevice    *models.DeviceSummary `json:"blocking_device,omitempty"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	reqCtx := h.requestContext(r)

	result, denial, err := h.gate.AttemptLogin(r.Context(), req.Email, req.Password, reqCtx)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	if denial != nil {
		writeDenial(w, denial)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &LoginResponse{
		SessionToken: result.SessionToken,
		User:         userToResponse(result.User),
		Device:       deviceToResponse(result.Device),
	})
}

// Logout handles POST /auth/logout for the current session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "No active session")
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "No active session")
		return
	}

	if err := h.gate.Logout(r.Context(), userID, claims.SessionID(), h.requestContext(r)); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) requestContext(r *http.Request) services.RequestContext {
	return services.RequestContext{
		IPAddress:      pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:      r.UserAgent(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
	}
}

// writeDenial maps a login denial to its HTTP shape. The reason code is
// stable; messages stay generic for credential failures so responses cannot
// distinguish unknown identities from wrong secrets.
func writeDenial(w http.ResponseWriter, denial *services.LoginDenial) {
	switch denial.Reason {
	case models.EventTypeRateLimited, models.EventTypeAccountLocked:
		retryAfter := int(denial.RetryAfter / time.Second)
		if retryAfter > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		}
		pkghttp.WriteErrorWithDetails(w, http.StatusTooManyRequests, denial.Reason,
			"Too many failed login attempts. Please try again later.",
			&DenialDetails{RetryAfterSeconds: retryAfter})
	case models.EventTypeDeviceBlocked:
		pkghttp.WriteErrorWithDetails(w, http.StatusConflict, denial.Reason,
			"Another device is already signed in to this account.",
			&DenialDetails{BlockingDevice: denial.BlockingDevice})
	case models.EventTypeInactiveAccount:
		pkghttp.WriteError(w, http.StatusForbidden, denial.Reason, "This account is not active.")
	default:
		pkghttp.WriteError(w, http.StatusUnauthorized, models.EventTypeInvalidCredentials, "Authentication failed")
	}
}

func userToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
}
