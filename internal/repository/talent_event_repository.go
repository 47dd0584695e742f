package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sipodi-api/internal/models"
)

// TalentEventRepository appends to and reads the talent history. Rows are never updated.
type TalentEventRepository struct {
	db *sqlx.DB
}

// NewTalentEventRepository constructs the repository.
func NewTalentEventRepository(db *sqlx.DB) *TalentEventRepository {
	return &TalentEventRepository{db: db}
}

// Append inserts one event.
func (r *TalentEventRepository) Append(ctx context.Context, event *models.TalentEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO talent_events (id, talent_id, actor_id, type, status, reason, created_at)
	VALUES (:id, :talent_id, :actor_id, :type, :status, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("append talent event: %w", err)
	}
	return nil
}

// ListByTalent returns the history of a talent oldest first.
func (r *TalentEventRepository) ListByTalent(ctx context.Context, talentID string) ([]models.TalentEvent, error) {
	const query = `SELECT e.id, e.talent_id, e.actor_id, u.full_name AS actor_name, e.type, e.status, e.reason, e.created_at
	FROM talent_events e LEFT JOIN users u ON u.id = e.actor_id
	WHERE e.talent_id = $1 ORDER BY e.created_at ASC, e.id ASC`
	var events []models.TalentEvent
	if err := r.db.SelectContext(ctx, &events, query, talentID); err != nil {
		return nil, fmt.Errorf("list talent events: %w", err)
	}
	return events, nil
}
