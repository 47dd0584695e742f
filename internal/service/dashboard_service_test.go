package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

type stubDashboardRepo struct {
	calls  int
	scopes []models.TalentFilter
	fail   error
}

func (r *stubDashboardRepo) CountSchools(ctx context.Context) (int, error) {
	r.calls++
	return 2, r.fail
}

func (r *stubDashboardRepo) CountUsersByRole(ctx context.Context) ([]models.GroupCount, error) {
	return []models.GroupCount{{Key: "gtk", Count: 40}, {Key: "admin_sekolah", Count: 2}, {Key: "super_admin", Count: 1}}, nil
}

func (r *stubDashboardRepo) CountGTKByType(ctx context.Context, schoolID *string) ([]models.GroupCount, error) {
	r.calls++
	if schoolID != nil {
		return []models.GroupCount{{Key: "guru", Count: 15}, {Key: "tendik", Count: 5}}, nil
	}
	return []models.GroupCount{{Key: "guru", Count: 30}, {Key: "tendik", Count: 10}}, nil
}

func (r *stubDashboardRepo) CountTalentsBy(ctx context.Context, scope models.TalentFilter, column string) ([]models.GroupCount, error) {
	r.scopes = append(r.scopes, scope)
	switch column {
	case "status":
		if scope.UserID != nil {
			return []models.GroupCount{{Key: "approved", Count: 2}}, nil
		}
		return []models.GroupCount{{Key: "pending", Count: 3}, {Key: "approved", Count: 7}}, nil
	case "kind":
		return []models.GroupCount{{Key: "peserta_pelatihan", Count: 6}, {Key: "minat_bakat", Count: 4}}, nil
	case "level":
		return []models.GroupCount{{Key: "nasional", Count: 1}}, nil
	}
	return nil, nil
}

func (r *stubDashboardRepo) SchoolStatistics(ctx context.Context, limit int) ([]models.SchoolStatistics, error) {
	return []models.SchoolStatistics{
		{ID: "school-1", Name: "SMAN 1", GTKCount: 20, TalentCount: 10},
		{ID: "school-2", Name: "SMAN 2", GTKCount: 18, TalentCount: 4},
	}, nil
}

type stubTalentLister struct {
	last models.TalentFilter
}

func (l *stubTalentLister) List(ctx context.Context, filter models.TalentFilter) ([]models.Talent, int, error) {
	l.last = filter
	return []models.Talent{
		{ID: "t-1", UserID: "gtk-1", Kind: models.KindTraining, DetailJSON: trainingDetail, Status: models.TalentStatusPending, SchoolID: strPtr("school-1")},
		{ID: "t-2", UserID: "gtk-1", Kind: models.KindTraining, DetailJSON: []byte(`{broken`), Status: models.TalentStatusPending},
	}, 2, nil
}

type stubUnread struct {
	count int
	err   error
}

func (u stubUnread) CountUnread(ctx context.Context, userID string) (int, error) {
	return u.count, u.err
}

type memoryCache struct {
	entries map[string][]byte
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) bool {
	raw, ok := c.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err == nil {
		c.entries[key] = raw
	}
}

func newDashboardFixture(unread stubUnread) (*DashboardService, *stubDashboardRepo, *stubTalentLister, *memoryCache) {
	repo := &stubDashboardRepo{}
	talents := &stubTalentLister{}
	cache := &memoryCache{entries: map[string][]byte{}}
	svc := NewDashboardService(DashboardServiceParams{
		Repo:          repo,
		Talents:       talents,
		Schools:       stubSchoolLookup{"school-1": {ID: "school-1", Name: "SMAN 1"}},
		Notifications: unread,
		Cache:         cache,
	})
	return svc, repo, talents, cache
}

func TestSuperAdminSummaryIsCached(t *testing.T) {
	svc, repo, _, cache := newDashboardFixture(stubUnread{})
	ctx := context.Background()

	summary, hit, err := svc.Summary(ctx, superAdmin)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, summary.TotalSchools)
	assert.Equal(t, 43, summary.TotalUsers)
	assert.Equal(t, 40, summary.TotalGTK)
	assert.Equal(t, 10, summary.TotalTalents)
	assert.Equal(t, 3, summary.PendingVerifications)
	assert.Equal(t, 6, summary.TalentsByType["peserta_pelatihan"])
	assert.Contains(t, cache.entries, "dashboard:summary:super_admin")

	calls := repo.calls
	again, hit, err := svc.Summary(ctx, superAdmin)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, calls, repo.calls)
	assert.Equal(t, summary.TotalUsers, again.TotalUsers)
}

func TestSchoolAdminSummaryScopesToSchool(t *testing.T) {
	svc, repo, talents, _ := newDashboardFixture(stubUnread{})

	summary, _, err := svc.Summary(context.Background(), schoolAdmin)
	require.NoError(t, err)
	require.NotNil(t, summary.School)
	assert.Equal(t, "SMAN 1", summary.School.Name)
	assert.Equal(t, 20, summary.TotalGTK)
	assert.Equal(t, 3, summary.PendingVerifications)
	require.Len(t, summary.RecentTalents, 1)
	assert.Equal(t, "t-1", summary.RecentTalents[0].ID)

	require.NotEmpty(t, repo.scopes)
	assert.Equal(t, "school-1", *repo.scopes[0].SchoolID)
	assert.Equal(t, models.TalentStatusPending, *talents.last.Status)
	assert.Equal(t, 5, talents.last.PageSize)

	cached, hit, err := svc.Summary(context.Background(), schoolAdmin)
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, cached.RecentTalents, 1)
	detail, ok := cached.RecentTalents[0].Detail.(models.TrainingDetail)
	require.True(t, ok)
	assert.Equal(t, "Workshop A", detail.ActivityName)
}

func TestGTKSummaryReadsUnreadLive(t *testing.T) {
	svc, _, _, cache := newDashboardFixture(stubUnread{count: 4})
	ctx := context.Background()

	summary, _, err := svc.Summary(ctx, gtkActor)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.UnreadNotifications)
	assert.Equal(t, map[string]int{"pending": 0, "approved": 2, "rejected": 0}, summary.MyTalents)

	var cached map[string]interface{}
	require.NoError(t, json.Unmarshal(cache.entries["dashboard:summary:gtk:gtk-1"], &cached))
	assert.NotContains(t, cached, "unread_notifications")

	svc.notifications = stubUnread{err: errors.New("db down")}
	summary, hit, err := svc.Summary(ctx, gtkActor)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Zero(t, summary.UnreadNotifications)
}

func TestStatisticsScopes(t *testing.T) {
	svc, repo, _, _ := newDashboardFixture(stubUnread{})
	ctx := context.Background()

	rows, err := svc.SchoolStatistics(ctx, schoolAdmin)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "school-1", rows[0].ID)

	rows, err = svc.SchoolStatistics(ctx, superAdmin)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = svc.SchoolStatistics(ctx, gtkActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	stats, err := svc.TalentStatistics(ctx, schoolAdmin)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 1, stats.ByLevel["nasional"])
	assert.Empty(t, stats.ByField)
	assert.Equal(t, "school-1", *repo.scopes[len(repo.scopes)-1].SchoolID)

	_, err = svc.TalentStatistics(ctx, gtkActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
