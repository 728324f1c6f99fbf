package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/google/uuid"
)

// AuthEventStore defines the interface for the append-only event store
type AuthEventStore interface {
	Create(ctx context.Context, event *models.AuthEvent) (*models.AuthEvent, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.AuthEvent, error)
	ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.AuthEvent, error)
	ListFailures(ctx context.Context, limit, offset int) ([]*models.AuthEvent, error)
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditService records authentication events with a dual-write pattern
// (slog + database). Storage failures are logged and alerted through slog
// but never surface to the caller: an unavailable audit store must not
// change the outcome of an authentication decision.
type AuditService struct {
	store  AuthEventStore
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(store AuthEventStore, logger *slog.Logger) *AuditService {
	return &AuditService{
		store:  store,
		logger: logger,
	}
}

// Record appends an auth event. It never returns an error.
func (s *AuditService) Record(ctx context.Context, event *models.AuthEvent) {
	attrs := []slog.Attr{
		slog.String("event_type", event.EventType),
		slog.String("outcome", event.Outcome),
		slog.String("ip_address", event.IPAddress),
	}
	if event.ActorUserID != nil {
		attrs = append(attrs, slog.String("actor_user_id", event.ActorUserID.String()))
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", event.Metadata))
	}

	level := slog.LevelInfo
	if event.Outcome == models.OutcomeFailure {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, "auth event", attrs...)

	if _, err := s.store.Create(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist auth event",
			slog.String("event_type", event.EventType),
			slog.Any("error", err),
		)
	}
}

// EventsForUser retrieves the audit trail for one user
func (s *AuditService) EventsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuthEvent, error) {
	limit, offset = clampPage(limit, offset)

	events, err := s.store.ListByActor(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user audit trail: %w", err)
	}
	return events, nil
}

// EventsByType retrieves events of a single type
func (s *AuditService) EventsByType(ctx context.Context, eventType string, limit, offset int) ([]*models.AuthEvent, error) {
	limit, offset = clampPage(limit, offset)

	events, err := s.store.ListByEventType(ctx, eventType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get events by type: %w", err)
	}
	return events, nil
}

// FailedEvents retrieves denial events for forensic review
func (s *AuditService) FailedEvents(ctx context.Context, limit, offset int) ([]*models.AuthEvent, error) {
	limit, offset = clampPage(limit, offset)

	events, err := s.store.ListFailures(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed events: %w", err)
	}
	return events, nil
}

// RemoveOlderThan deletes events past the retention window
func (s *AuditService) RemoveOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.Cleanup(ctx, time.Now().Add(-retention))
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
