package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sipodi-api/internal/models"
)

const talentColumns = `t.id, t.user_id, t.kind, t.detail, t.attachment_url, t.attachment_upload_id, t.status,
	t.verified_by, t.verified_at, t.rejection_reason, t.created_at, t.updated_at,
	su.full_name AS submitter_name, su.school_id AS school_id, s.name AS school_name, rv.full_name AS reviewer_name`

const talentFrom = `FROM talents t
	JOIN users su ON su.id = t.user_id
	LEFT JOIN schools s ON s.id = su.school_id
	LEFT JOIN users rv ON rv.id = t.verified_by`

// TalentRepository persists talent submissions. Every state-changing statement is guarded by
// status = 'pending' and reports a lost guard as sql.ErrNoRows.
type TalentRepository struct {
	db *sqlx.DB
}

// NewTalentRepository constructs the repository.
func NewTalentRepository(db *sqlx.DB) *TalentRepository {
	return &TalentRepository{db: db}
}

// Create inserts a new pending talent.
func (r *TalentRepository) Create(ctx context.Context, talent *models.Talent) error {
	if talent.ID == "" {
		talent.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	talent.Status = models.TalentStatusPending
	talent.CreatedAt = now
	talent.UpdatedAt = now

	const query = `INSERT INTO talents (id, user_id, kind, detail, attachment_url, attachment_upload_id, status, created_at, updated_at)
	VALUES (:id, :user_id, :kind, :detail, :attachment_url, :attachment_upload_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, talent); err != nil {
		return fmt.Errorf("create talent: %w", err)
	}
	return nil
}

// GetByID fetches a talent with display fields.
func (r *TalentRepository) GetByID(ctx context.Context, id string) (*models.Talent, error) {
	query := `SELECT ` + talentColumns + ` ` + talentFrom + ` WHERE t.id = $1`
	var talent models.Talent
	if err := r.db.GetContext(ctx, &talent, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get talent: %w", err)
	}
	return &talent, nil
}

// FindByIDs loads every existing talent among ids keyed by id.
func (r *TalentRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Talent, error) {
	out := make(map[string]*models.Talent, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT ` + talentColumns + ` ` + talentFrom + ` WHERE t.id::text = ANY($1)`
	var talents []models.Talent
	if err := r.db.SelectContext(ctx, &talents, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find talents by ids: %w", err)
	}
	for i := range talents {
		out[talents[i].ID] = &talents[i]
	}
	return out, nil
}

// List returns talents matching the filter, newest first.
func (r *TalentRepository) List(ctx context.Context, filter models.TalentFilter) ([]models.Talent, int, error) {
	where, args := talentConditions(filter)

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY t.created_at DESC, t.id LIMIT %d OFFSET %d", talentColumns, talentFrom, where, pageSize, offset)
	var talents []models.Talent
	if err := r.db.SelectContext(ctx, &talents, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list talents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", talentFrom, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count talents: %w", err)
	}
	return talents, total, nil
}

func talentConditions(filter models.TalentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		conditions = append(conditions, fmt.Sprintf("t.kind = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.SchoolID != nil {
		args = append(args, *filter.SchoolID)
		conditions = append(conditions, fmt.Sprintf("su.school_id::text = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("t.user_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(su.full_name) LIKE $%d OR LOWER(t.detail::text) LIKE $%d)", len(args), len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// UpdatePending rewrites detail and attachment while the talent is pending and owned by talent.UserID.
func (r *TalentRepository) UpdatePending(ctx context.Context, talent *models.Talent) error {
	talent.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE talents SET detail = :detail, attachment_url = :attachment_url, attachment_upload_id = :attachment_upload_id,
	updated_at = :updated_at WHERE id = :id AND user_id = :user_id AND status = '%s'`, models.TalentStatusPending)
	result, err := r.db.NamedExecContext(ctx, query, talent)
	if err != nil {
		return fmt.Errorf("update talent: %w", err)
	}
	return requireAffected(result, "update talent")
}

// DeletePending hard-deletes a pending talent owned by userID.
func (r *TalentRepository) DeletePending(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`DELETE FROM talents WHERE id = $1 AND user_id = $2 AND status = '%s'`, models.TalentStatusPending)
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete talent: %w", err)
	}
	return requireAffected(result, "delete talent")
}

// ApplyDecision stamps the reviewer and moves a pending talent to d.Outcome. The guard is
// evaluated against the stored row, so a concurrent decision surfaces as sql.ErrNoRows.
func (r *TalentRepository) ApplyDecision(ctx context.Context, id string, d models.Decision) error {
	var reason *string
	if d.Outcome == models.TalentStatusRejected {
		reason = &d.Reason
	}
	query := fmt.Sprintf(`UPDATE talents SET status = $2, verified_by = $3, verified_at = $4, rejection_reason = $5, updated_at = $4
	WHERE id = $1 AND status = '%s'`, models.TalentStatusPending)
	result, err := r.db.ExecContext(ctx, query, id, d.Outcome, d.ReviewerID, d.At, reason)
	if err != nil {
		return fmt.Errorf("decide talent: %w", err)
	}
	return requireAffected(result, "decide talent")
}
