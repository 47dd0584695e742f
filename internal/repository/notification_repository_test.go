package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sipodi-api/internal/models"
)

func TestListUnreadNotifications(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE user_id = $1 AND is_read = FALSE ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("gtk-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "talent_id", "type", "message", "is_read", "created_at"}).
			AddRow("n-1", "gtk-1", "t-1", "talent_approved", "Talenta Anda telah disetujui", false, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE")).
		WithArgs("gtk-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.ListByUser(context.Background(), "gtk-1", models.NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationTalentApproved, items[0].Type)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadRequiresOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND user_id = $2")).WithArgs("n-1", "other").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.MarkRead(context.Background(), "n-1", "other"), sql.ErrNoRows)
}

func TestSchoolNPSNExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schools WHERE npsn = $1 AND id::text <> $2)")).
		WithArgs("20512345", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.NPSNExists(context.Background(), "20512345", "")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest map[string]int
	assert.Error(t, repo.Get(context.Background(), "dashboard:x", &dest))
	assert.NoError(t, repo.Set(context.Background(), "dashboard:x", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "dashboard:*"))
}
