package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DrewHollis/gatehouse/internal/auth"
	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/DrewHollis/gatehouse/internal/services"
	pkghttp "github.com/DrewHollis/gatehouse/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext adds session claims to request context for testing
// authenticated endpoints
func WithSessionContext(req *http.Request, userID uuid.UUID, email, role, sessionID string) *http.Request {
	claims := &auth.SessionClaims{
		UserID: userID.String(),
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: sessionID,
		},
	}
	return req.WithContext(auth.ContextWithSession(req.Context(), claims))
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthGate implements AuthGateInterface for testing
type MockAuthGate struct {
	AttemptLoginFunc func(ctx context.Context, email, password string, reqCtx services.RequestContext) (*services.LoginResult, *services.LoginDenial, error)
	LogoutFunc       func(ctx context.Context, userID uuid.UUID, sessionID string, reqCtx services.RequestContext) error
}

func (m *MockAuthGate) AttemptLogin(ctx context.Context, email, password string, reqCtx services.RequestContext) (*services.LoginResult, *services.LoginDenial, error) {
	if m.AttemptLoginFunc != nil {
		return m.AttemptLoginFunc(ctx, email, password, reqCtx)
	}
	return nil, &services.LoginDenial{Reason: models.EventTypeInvalidCredentials}, nil
}

func (m *MockAuthGate) Logout(ctx context.Context, userID uuid.UUID, sessionID string, reqCtx services.RequestContext) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, userID, sessionID, reqCtx)
	}
	return nil
}

// MockDeviceRegistry implements DeviceRegistryInterface for testing
type MockDeviceRegistry struct {
	ListDevicesForUserFunc  func(ctx context.Context, userID uuid.UUID) ([]*models.Device, error)
	CountActiveDevicesFunc  func(ctx context.Context) (int64, error)
	ResetDevicesForUserFunc func(ctx context.Context, userID uuid.UUID, actorID uuid.UUID) (int64, error)
}

func (m *MockDeviceRegistry) ListDevicesForUser(ctx context.Context, userID uuid.UUID) ([]*models.Device, error) {
	if m.ListDevicesForUserFunc != nil {
		return m.ListDevicesForUserFunc(ctx, userID)
	}
	return []*models.Device{}, nil
}

func (m *MockDeviceRegistry) CountActiveDevices(ctx context.Context) (int64, error) {
	if m.CountActiveDevicesFunc != nil {
		return m.CountActiveDevicesFunc(ctx)
	}
	return 0, nil
}

func (m *MockDeviceRegistry) ResetDevicesForUser(ctx context.Context, userID uuid.UUID, actorID uuid.UUID) (int64, error) {
	if m.ResetDevicesForUserFunc != nil {
		return m.ResetDevicesForUserFunc(ctx, userID, actorID)
	}
	return 0, nil
}

// MockUserAdmin implements UserAdminInterface for testing
type MockUserAdmin struct {
	SetSingleDeviceLoginFunc func(ctx context.Context, id uuid.UUID, enabled bool) error
}

func (m *MockUserAdmin) SetSingleDeviceLogin(ctx context.Context, id uuid.UUID, enabled bool) error {
	if m.SetSingleDeviceLoginFunc != nil {
		return m.SetSingleDeviceLoginFunc(ctx, id, enabled)
	}
	return nil
}
