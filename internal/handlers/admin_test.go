package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DrewHollis/gatehouse/internal/handlers"
	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuditQuery struct {
	EventsForUserFunc func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuthEvent, error)
	EventsByTypeFunc  func(ctx context.Context, eventType string, limit, offset int) ([]*models.AuthEvent, error)
	FailedEventsFunc  func(ctx context.Context, limit, offset int) ([]*models.AuthEvent, error)
}

func (m *mockAuditQuery) EventsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuthEvent, error) {
	if m.EventsForUserFunc != nil {
		return m.EventsForUserFunc(ctx, userID, limit, offset)
	}
	return []*models.AuthEvent{}, nil
}

func (m *mockAuditQuery) EventsByType(ctx context.Context, eventType string, limit, offset int) ([]*models.AuthEvent, error) {
	if m.EventsByTypeFunc != nil {
		return m.EventsByTypeFunc(ctx, eventType, limit, offset)
	}
	return []*models.AuthEvent{}, nil
}

func (m *mockAuditQuery) FailedEvents(ctx context.Context, limit, offset int) ([]*models.AuthEvent, error) {
	if m.FailedEventsFunc != nil {
		return m.FailedEventsFunc(ctx, limit, offset)
	}
	return []*models.AuthEvent{}, nil
}

func TestDeviceCount(t *testing.T) {
	registry := &handlers.MockDeviceRegistry{
		CountActiveDevicesFunc: func(ctx context.Context) (int64, error) {
			return 42, nil
		},
	}

	handler := handlers.NewAdminHandler(registry, &mockAuditQuery{}, &handlers.MockUserAdmin{})
	req := handlers.NewTestRequest(t, "GET", "/admin/devices/count", nil)

	w := httptest.NewRecorder()
	handler.DeviceCount(w, req)

	var resp struct {
		ActiveDevices int64 `json:"active_devices"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, int64(42), resp.ActiveDevices)
}

func TestResetUserDevices(t *testing.T) {
	targetID := uuid.New()
	adminID := uuid.New()
	registry := &handlers.MockDeviceRegistry{
		ResetDevicesForUserFunc: func(ctx context.Context, userID uuid.UUID, actorID uuid.UUID) (int64, error) {
			assert.Equal(t, targetID, userID)
			assert.Equal(t, adminID, actorID)
			return 1, nil
		},
	}

	handler := handlers.NewAdminHandler(registry, &mockAuditQuery{}, &handlers.MockUserAdmin{})
	req := handlers.NewTestRequest(t, "DELETE", "/admin/users/"+targetID.String()+"/devices", nil)
	req = handlers.WithSessionContext(req, adminID, "admin@example.com", "admin", "session-admin")
	req = handlers.WithChiRouteContext(req, map[string]string{"id": targetID.String()})

	w := httptest.NewRecorder()
	handler.ResetUserDevices(w, req)

	var resp struct {
		Deactivated int64 `json:"deactivated"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, int64(1), resp.Deactivated)
}

func TestResetUserDevices_InvalidID(t *testing.T) {
	handler := handlers.NewAdminHandler(&handlers.MockDeviceRegistry{}, &mockAuditQuery{}, &handlers.MockUserAdmin{})
	req := handlers.NewTestRequest(t, "DELETE", "/admin/users/not-a-uuid/devices", nil)
	req = handlers.WithSessionContext(req, uuid.New(), "admin@example.com", "admin", "session-admin")
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "not-a-uuid"})

	w := httptest.NewRecorder()
	handler.ResetUserDevices(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestSetEnforcement_EnableReleasesActiveDevices(t *testing.T) {
	targetID := uuid.New()
	adminID := uuid.New()
	var gotEnabled bool
	users := &handlers.MockUserAdmin{
		SetSingleDeviceLoginFunc: func(ctx context.Context, id uuid.UUID, enabled bool) error {
			assert.Equal(t, targetID, id)
			gotEnabled = enabled
			return nil
		},
	}
	registry := &handlers.MockDeviceRegistry{
		ResetDevicesForUserFunc: func(ctx context.Context, userID uuid.UUID, actorID uuid.UUID) (int64, error) {
			assert.Equal(t, targetID, userID)
			assert.Equal(t, adminID, actorID)
			return 2, nil
		},
	}

	handler := handlers.NewAdminHandler(registry, &mockAuditQuery{}, users)
	req := handlers.NewTestRequest(t, "PUT", "/admin/users/"+targetID.String()+"/enforcement", handlers.EnforcementRequest{Enabled: true})
	req = handlers.WithSessionContext(req, adminID, "admin@example.com", "admin", "session-admin")
	req = handlers.WithChiRouteContext(req, map[string]string{"id": targetID.String()})

	w := httptest.NewRecorder()
	handler.SetEnforcement(w, req)

	var resp struct {
		SingleDeviceLogin bool  `json:"single_device_login"`
		DevicesReleased   int64 `json:"devices_released"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.True(t, gotEnabled)
	assert.True(t, resp.SingleDeviceLogin)
	assert.Equal(t, int64(2), resp.DevicesReleased)
}

func TestSetEnforcement_DisableLeavesDevicesAlone(t *testing.T) {
	targetID := uuid.New()
	registry := &handlers.MockDeviceRegistry{
		ResetDevicesForUserFunc: func(ctx context.Context, userID uuid.UUID, actorID uuid.UUID) (int64, error) {
			t.Fatal("devices must not be released when disabling enforcement")
			return 0, nil
		},
	}

	handler := handlers.NewAdminHandler(registry, &mockAuditQuery{}, &handlers.MockUserAdmin{})
	req := handlers.NewTestRequest(t, "PUT", "/admin/users/"+targetID.String()+"/enforcement", handlers.EnforcementRequest{Enabled: false})
	req = handlers.WithSessionContext(req, uuid.New(), "admin@example.com", "admin", "session-admin")
	req = handlers.WithChiRouteContext(req, map[string]string{"id": targetID.String()})

	w := httptest.NewRecorder()
	handler.SetEnforcement(w, req)

	var resp struct {
		SingleDeviceLogin bool  `json:"single_device_login"`
		DevicesReleased   int64 `json:"devices_released"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.False(t, resp.SingleDeviceLogin)
	assert.Equal(t, int64(0), resp.DevicesReleased)
}

func TestSetEnforcement_UnknownUser(t *testing.T) {
	users := &handlers.MockUserAdmin{
		SetSingleDeviceLoginFunc: func(ctx context.Context, id uuid.UUID, enabled bool) error {
			return models.ErrNotFound
		},
	}

	targetID := uuid.New()
	handler := handlers.NewAdminHandler(&handlers.MockDeviceRegistry{}, &mockAuditQuery{}, users)
	req := handlers.NewTestRequest(t, "PUT", "/admin/users/"+targetID.String()+"/enforcement", handlers.EnforcementRequest{Enabled: false})
	req = handlers.WithSessionContext(req, uuid.New(), "admin@example.com", "admin", "session-admin")
	req = handlers.WithChiRouteContext(req, map[string]string{"id": targetID.String()})

	w := httptest.NewRecorder()
	handler.SetEnforcement(w, req)

	assert.Equal(t, 404, w.Code)
}

func TestListEvents_ByType(t *testing.T) {
	actorID := uuid.New()
	audit := &mockAuditQuery{
		EventsByTypeFunc: func(ctx context.Context, eventType string, limit, offset int) ([]*models.AuthEvent, error) {
			require.Equal(t, models.EventTypeLoginSuccess, eventType)
			return []*models.AuthEvent{
				{
					ID:          uuid.New(),
					ActorUserID: &actorID,
					EventType:   models.EventTypeLoginSuccess,
					Outcome:     models.OutcomeSuccess,
					IPAddress:   "10.0.0.1",
					OccurredAt:  time.Now(),
				},
			}, nil
		},
	}

	handler := handlers.NewAdminHandler(&handlers.MockDeviceRegistry{}, audit, &handlers.MockUserAdmin{})
	req := handlers.NewTestRequest(t, "GET", "/admin/events?type=login_success", nil)

	w := httptest.NewRecorder()
	handler.ListEvents(w, req)

	var resp struct {
		Events []*handlers.AuthEventResponse `json:"events"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, models.EventTypeLoginSuccess, resp.Events[0].EventType)
}

func TestListEvents_DefaultsToFailures(t *testing.T) {
	called := false
	audit := &mockAuditQuery{
		FailedEventsFunc: func(ctx context.Context, limit, offset int) ([]*models.AuthEvent, error) {
			called = true
			assert.Equal(t, 50, limit)
			return []*models.AuthEvent{}, nil
		},
	}

	handler := handlers.NewAdminHandler(&handlers.MockDeviceRegistry{}, audit, &handlers.MockUserAdmin{})
	req := handlers.NewTestRequest(t, "GET", "/admin/events", nil)

	w := httptest.NewRecorder()
	handler.ListEvents(w, req)

	assert.Equal(t, 200, w.Code)
	assert.True(t, called)
}

func TestListEvents_ByUser(t *testing.T) {
	actorID := uuid.New()
	audit := &mockAuditQuery{
		EventsForUserFunc: func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuthEvent, error) {
			assert.Equal(t, actorID, userID)
			return []*models.AuthEvent{}, nil
		},
	}

	handler := handlers.NewAdminHandler(&handlers.MockDeviceRegistry{}, audit, &handlers.MockUserAdmin{})
	req := handlers.NewTestRequest(t, "GET", "/admin/events?user_id="+actorID.String(), nil)

	w := httptest.NewRecorder()
	handler.ListEvents(w, req)

	assert.Equal(t, 200, w.Code)
}
