package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sipodi-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind dashboards.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CountSchools returns the number of schools.
func (r *DashboardRepository) CountSchools(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM schools`); err != nil {
		return 0, fmt.Errorf("count schools: %w", err)
	}
	return n, nil
}

// CountUsersByRole groups every user by role.
func (r *DashboardRepository) CountUsersByRole(ctx context.Context) ([]models.GroupCount, error) {
	var rows []models.GroupCount
	if err := r.db.SelectContext(ctx, &rows, `SELECT role AS key, COUNT(*) AS count FROM users GROUP BY role`); err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	return rows, nil
}

// CountGTKByType groups GTK by gtk_type, optionally within one school.
func (r *DashboardRepository) CountGTKByType(ctx context.Context, schoolID *string) ([]models.GroupCount, error) {
	query := `SELECT COALESCE(gtk_type, '') AS key, COUNT(*) AS count FROM users WHERE role = 'gtk'`
	var args []interface{}
	if schoolID != nil {
		query += ` AND school_id::text = $1`
		args = append(args, *schoolID)
	}
	query += ` GROUP BY gtk_type`
	var rows []models.GroupCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count gtk by type: %w", err)
	}
	return rows, nil
}

// CountTalentsBy groups talents matching scope along column. Allowed columns are status,
// kind, and the detail keys level and field.
func (r *DashboardRepository) CountTalentsBy(ctx context.Context, scope models.TalentFilter, column string) ([]models.GroupCount, error) {
	var expr string
	switch column {
	case "status":
		expr = "t.status"
	case "kind":
		expr = "t.kind"
	case "level", "field":
		expr = fmt.Sprintf("t.detail->>'%s'", column)
	default:
		return nil, fmt.Errorf("unsupported talent grouping %q", column)
	}

	where, args := talentConditions(scope)
	if column == "level" || column == "field" {
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += expr + " IS NOT NULL"
	}
	query := fmt.Sprintf(`SELECT %s AS key, COUNT(*) AS count FROM talents t JOIN users su ON su.id = t.user_id%s GROUP BY %s`, expr, where, expr)
	var rows []models.GroupCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count talents by %s: %w", column, err)
	}
	return rows, nil
}

// SchoolStatistics lists personnel and talent counts per school.
func (r *DashboardRepository) SchoolStatistics(ctx context.Context, limit int) ([]models.SchoolStatistics, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := fmt.Sprintf(`SELECT s.id, s.name, s.npsn, s.status,
		(SELECT COUNT(*) FROM users u WHERE u.school_id = s.id AND u.role = 'gtk') AS gtk_count,
		COUNT(t.id) AS talent_count,
		COUNT(t.id) FILTER (WHERE t.status = 'pending') AS pending_count,
		COUNT(t.id) FILTER (WHERE t.status = 'approved') AS approved_count
	FROM schools s
	LEFT JOIN users su ON su.school_id = s.id
	LEFT JOIN talents t ON t.user_id = su.id
	GROUP BY s.id, s.name, s.npsn, s.status
	ORDER BY s.name ASC
	LIMIT %d`, limit)
	var rows []models.SchoolStatistics
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("school statistics: %w", err)
	}
	return rows, nil
}
