package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/DrewHollis/gatehouse/internal/database"
	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const authEventColumns = `id, actor_user_id, event_type, outcome, ip_address, user_agent, metadata, occurred_at`

// AuthEventRepository handles the append-only authentication event store.
// Events are inserted by the gate and the registry; nothing updates or
// deletes them in normal operation apart from the retention sweep.
type AuthEventRepository struct {
	db *database.DB
}

// NewAuthEventRepository creates a new AuthEventRepository
func NewAuthEventRepository(db *database.DB) *AuthEventRepository {
	return &AuthEventRepository{db: db}
}

func scanAuthEventRow(row rowScanner) (*models.AuthEvent, error) {
	var e models.AuthEvent
	err := row.Scan(
		&e.ID, &e.ActorUserID, &e.EventType, &e.Outcome,
		&e.IPAddress, &e.UserAgent, &e.Metadata, &e.OccurredAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &e, nil
}

func scanAuthEventRows(rows pgx.Rows) ([]*models.AuthEvent, error) {
	defer rows.Close()

	events := make([]*models.AuthEvent, 0)
	for rows.Next() {
		e, err := scanAuthEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auth event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auth event rows: %w", err)
	}

	return events, nil
}

// Create appends a new auth event
func (r *AuthEventRepository) Create(ctx context.Context, event *models.AuthEvent) (*models.AuthEvent, error) {
	query := `
		INSERT INTO auth_events (actor_user_id, event_type, outcome, ip_address, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + authEventColumns

	created, err := scanAuthEventRow(r.db.Pool.QueryRow(ctx, query,
		event.ActorUserID, event.EventType, event.Outcome,
		event.IPAddress, event.UserAgent, event.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create auth event: %w", err)
	}
	return created, nil
}

// ListByActor retrieves events recorded for a specific user
func (r *AuthEventRepository) ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.AuthEvent, error) {
	query := `
		SELECT ` + authEventColumns + `
		FROM auth_events
		WHERE actor_user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, actorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query auth events: %w", err)
	}

	return scanAuthEventRows(rows)
}

// ListByEventType retrieves events of one type, newest first
func (r *AuthEventRepository) ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.AuthEvent, error) {
	query := `
		SELECT ` + authEventColumns + `
		FROM auth_events
		WHERE event_type = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, eventType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query auth events: %w", err)
	}

	return scanAuthEventRows(rows)
}

// ListFailures retrieves denial events, newest first
func (r *AuthEventRepository) ListFailures(ctx context.Context, limit, offset int) ([]*models.AuthEvent, error) {
	query := `
		SELECT ` + authEventColumns + `
		FROM auth_events
		WHERE outcome = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, models.OutcomeFailure, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed auth events: %w", err)
	}

	return scanAuthEventRows(rows)
}

// Cleanup removes events older than the cutoff (retention sweep)
func (r *AuthEventRepository) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM auth_events WHERE occurred_at < $1`

	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup auth events: %w", err)
	}
	return tag.RowsAffected(), nil
}
