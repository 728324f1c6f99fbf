package services

import (
	"context"
	"sync"
	"time"

	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/google/uuid"
)

// MockUserStore implements UserStore for testing
type MockUserStore struct {
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

// MockDeviceStore implements DeviceStore for testing
type MockDeviceStore struct {
	GetByOwnerAndFingerprintFunc func(ctx context.Context, ownerID uuid.UUID, fp string) (*models.Device, error)
	GetActiveForOwnerFunc        func(ctx context.Context, ownerID uuid.UUID) (*models.Device, error)
	ListForOwnerFunc             func(ctx context.Context, ownerID uuid.UUID) ([]*models.Device, error)
	CountActiveFunc              func(ctx context.Context) (int64, error)
	AdmitFunc                    func(ctx context.Context, ownerID uuid.UUID, enforce bool, fp string, info models.DeviceInfo, sessionID string) (*models.Device, error)
	DeactivateBySessionFunc      func(ctx context.Context, sessionID string) (*models.Device, error)
	DeactivateAllForOwnerFunc    func(ctx context.Context, ownerID uuid.UUID) (int64, error)
	TouchActivityFunc            func(ctx context.Context, ownerID uuid.UUID, fp string, sessionID *string) error
	PurgeInactiveFunc            func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockDeviceStore) GetByOwnerAndFingerprint(ctx context.Context, ownerID uuid.UUID, fp string) (*models.Device, error) {
	if m.GetByOwnerAndFingerprintFunc != nil {
		return m.GetByOwnerAndFingerprintFunc(ctx, ownerID, fp)
	}
	return nil, models.ErrNotFound
}

func (m *MockDeviceStore) GetActiveForOwner(ctx context.Context, ownerID uuid.UUID) (*models.Device, error) {
	if m.GetActiveForOwnerFunc != nil {
		return m.GetActiveForOwnerFunc(ctx, ownerID)
	}
	return nil, models.ErrNotFound
}

func (m *MockDeviceStore) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Device, error) {
	if m.ListForOwnerFunc != nil {
		return m.ListForOwnerFunc(ctx, ownerID)
	}
	return []*models.Device{}, nil
}

func (m *MockDeviceStore) CountActive(ctx context.Context) (int64, error) {
	if m.CountActiveFunc != nil {
		return m.CountActiveFunc(ctx)
	}
	return 0, nil
}

func (m *MockDeviceStore) Admit(ctx context.Context, ownerID uuid.UUID, enforce bool, fp string, info models.DeviceInfo, sessionID string) (*models.Device, error) {
	if m.AdmitFunc != nil {
		return m.AdmitFunc(ctx, ownerID, enforce, fp, info, sessionID)
	}
	return &models.Device{
		ID:          uuid.New(),
		OwnerUserID: ownerID,
		Fingerprint: fp,
		DisplayName: info.DisplayName,
		Browser:     info.Browser,
		Platform:    info.Platform,
		DeviceClass: info.DeviceClass,
		IPAddress:   info.IPAddress,
		SessionID:   &sessionID,
		IsActive:    true,
	}, nil
}

func (m *MockDeviceStore) DeactivateBySession(ctx context.Context, sessionID string) (*models.Device, error) {
	if m.DeactivateBySessionFunc != nil {
		return m.DeactivateBySessionFunc(ctx, sessionID)
	}
	return nil, models.ErrNotFound
}

func (m *MockDeviceStore) DeactivateAllForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	if m.DeactivateAllForOwnerFunc != nil {
		return m.DeactivateAllForOwnerFunc(ctx, ownerID)
	}
	return 0, nil
}

func (m *MockDeviceStore) TouchActivity(ctx context.Context, ownerID uuid.UUID, fp string, sessionID *string) error {
	if m.TouchActivityFunc != nil {
		return m.TouchActivityFunc(ctx, ownerID, fp, sessionID)
	}
	return nil
}

func (m *MockDeviceStore) PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.PurgeInactiveFunc != nil {
		return m.PurgeInactiveFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockAuthEventStore implements AuthEventStore and captures every recorded
// event so tests can assert on the audit trail.
type MockAuthEventStore struct {
	mu     sync.Mutex
	Events []*models.AuthEvent

	CreateFunc  func(ctx context.Context, event *models.AuthEvent) (*models.AuthEvent, error)
	CleanupFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockAuthEventStore) Create(ctx context.Context, event *models.AuthEvent) (*models.AuthEvent, error) {
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	return event, nil
}

func (m *MockAuthEventStore) ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.AuthEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.AuthEvent
	for _, e := range m.Events {
		if e.ActorUserID != nil && *e.ActorUserID == actorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockAuthEventStore) ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.AuthEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.AuthEvent
	for _, e := range m.Events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockAuthEventStore) ListFailures(ctx context.Context, limit, offset int) ([]*models.AuthEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.AuthEvent
	for _, e := range m.Events {
		if e.Outcome == models.OutcomeFailure {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockAuthEventStore) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx, cutoff)
	}
	return 0, nil
}

// EventTypes returns the recorded event types in order
func (m *MockAuthEventStore) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.EventType)
	}
	return types
}

// MockSessionIssuer implements SessionIssuer for testing
type MockSessionIssuer struct {
	IssueFunc func(user *models.User, sessionID string) (string, error)
}

func (m *MockSessionIssuer) Issue(user *models.User, sessionID string) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(user, sessionID)
	}
	return "token-" + sessionID, nil
}

// memoryCounterStore is an in-process CounterStore for limiter and lock
// guard tests that do not need real TTL expiry.
type memoryCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newMemoryCounterStore() *memoryCounterStore {
	return &memoryCounterStore{
		counts: make(map[string]int64),
		ttls:   make(map[string]time.Duration),
	}
}

func (s *memoryCounterStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[key]++
	if s.counts[key] == 1 && ttl > 0 {
		s.ttls[key] = ttl
	}
	return s.counts[key], nil
}

func (s *memoryCounterStore) Peek(ctx context.Context, key string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key], nil
}

func (s *memoryCounterStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key], nil
}

func (s *memoryCounterStore) Reset(ctx context.Context, key string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, key)
	delete(s.ttls, key)
	return nil
}
