package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/repository"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository instantiates a Postgres-backed audit trail.
func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Record(ctx context.Context, event *domain.AuditEvent) error {
	if event == nil || event.Action == "" {
		return domain.ErrInvalidPayload
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	const query = `
	INSERT INTO audit_events (id, session_id, user_id, action, detail, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`

	var detail []byte
	if len(event.Detail) > 0 {
		detail, _ = json.Marshal(event.Detail)
	}

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.SessionID,
		event.UserID,
		event.Action,
		detail,
		event.CreatedAt,
	)
	return err
}

func (r *auditRepository) List(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEvent, error) {
	const query = `
	SELECT id, session_id, user_id, action, detail, created_at
	FROM audit_events
	WHERE ($1 = '' OR user_id = $1)
	  AND ($2 = '' OR action = $2)
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query, filter.UserID, filter.Action, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var event domain.AuditEvent
		var detail []byte
		if err := rows.Scan(&event.ID, &event.SessionID, &event.UserID, &event.Action, &detail, &event.CreatedAt); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &event.Detail)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
