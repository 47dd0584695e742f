package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sipodi-api/internal/models"
)

// ExportRepository streams unpaginated rows for file exports, bounded by a row limit.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs the repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// GTK returns GTK accounts, optionally within one school, ordered by school and name.
func (r *ExportRepository) GTK(ctx context.Context, schoolID *string, limit int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` ` + userFrom + ` WHERE u.role = 'gtk'`
	var args []interface{}
	if schoolID != nil {
		query += ` AND u.school_id::text = $1`
		args = append(args, *schoolID)
	}
	query += fmt.Sprintf(` ORDER BY s.name ASC NULLS LAST, u.full_name ASC LIMIT %d`, limit)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("export gtk: %w", err)
	}
	return users, nil
}

// Talents returns talents matching the scoped filter, newest first.
func (r *ExportRepository) Talents(ctx context.Context, filter models.TalentFilter, limit int) ([]models.Talent, error) {
	where, args := talentConditions(filter)
	query := fmt.Sprintf("SELECT %s %s%s ORDER BY t.created_at DESC LIMIT %d", talentColumns, talentFrom, where, limit)
	var talents []models.Talent
	if err := r.db.SelectContext(ctx, &talents, query, args...); err != nil {
		return nil, fmt.Errorf("export talents: %w", err)
	}
	return talents, nil
}
