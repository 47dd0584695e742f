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

	"github.com/noah-isme/sipodi-api/internal/models"
)

const schoolColumns = `s.id, s.name, s.npsn, s.status, s.address, s.head_master_id, hm.full_name AS head_master_name, s.created_at, s.updated_at`

const schoolFrom = `FROM schools s LEFT JOIN users hm ON hm.id = s.head_master_id`

// SchoolRepository provides database access for schools.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// Create inserts a school.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now
	const query = `INSERT INTO schools (id, name, npsn, status, address, head_master_id, created_at, updated_at)
	VALUES (:id, :name, :npsn, :status, :address, :head_master_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// FindByID fetches a school.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := `SELECT ` + schoolColumns + ` ` + schoolFrom + ` WHERE s.id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find school: %w", err)
	}
	return &school, nil
}

// NPSNExists reports whether another school already uses npsn.
func (r *SchoolRepository) NPSNExists(ctx context.Context, npsn, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM schools WHERE npsn = $1 AND id::text <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, npsn, excludeID); err != nil {
		return false, fmt.Errorf("check school npsn: %w", err)
	}
	return exists, nil
}

// List returns schools matching filter ordered by name.
func (r *SchoolRepository) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR s.npsn LIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY s.name ASC LIMIT %d OFFSET %d", schoolColumns, schoolFrom, where, pageSize, (page-1)*pageSize)
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM schools s%s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}
	return schools, total, nil
}

// Update persists mutable school columns.
func (r *SchoolRepository) Update(ctx context.Context, school *models.School) error {
	school.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schools SET name = :name, npsn = :npsn, status = :status, address = :address,
	head_master_id = :head_master_id, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, school)
	if err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	return requireAffected(result, "update school")
}

// Delete removes a school.
func (r *SchoolRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	return requireAffected(result, "delete school")
}

// CountGTKByType groups active GTK of a school by gtk_type.
func (r *SchoolRepository) CountGTKByType(ctx context.Context, schoolID string) ([]models.GroupCount, error) {
	const query = `SELECT COALESCE(gtk_type, '') AS key, COUNT(*) AS count FROM users
	WHERE school_id = $1 AND role = 'gtk' GROUP BY gtk_type`
	var rows []models.GroupCount
	if err := r.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("count school gtk: %w", err)
	}
	return rows, nil
}
