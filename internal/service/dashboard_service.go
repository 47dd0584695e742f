package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

type dashboardRepository interface {
	CountSchools(ctx context.Context) (int, error)
	CountUsersByRole(ctx context.Context) ([]models.GroupCount, error)
	CountGTKByType(ctx context.Context, schoolID *string) ([]models.GroupCount, error)
	CountTalentsBy(ctx context.Context, scope models.TalentFilter, column string) ([]models.GroupCount, error)
	SchoolStatistics(ctx context.Context, limit int) ([]models.SchoolStatistics, error)
}

type talentLister interface {
	List(ctx context.Context, filter models.TalentFilter) ([]models.Talent, int, error)
}

type unreadCounter interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL     time.Duration
	RecentLimit  int
	StatsMaxRows int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo          dashboardRepository
	Talents       talentLister
	Schools       schoolLookup
	Notifications unreadCounter
	Cache         dashboardCache
	Logger        *zap.Logger
	Config        DashboardServiceConfig
}

// DashboardService composes role specific dashboard payloads.
type DashboardService struct {
	repo          dashboardRepository
	talents       talentLister
	schools       schoolLookup
	notifications unreadCounter
	cache         dashboardCache
	logger        *zap.Logger
	cfg           DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	if cfg.StatsMaxRows <= 0 {
		cfg.StatsMaxRows = 1000
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:          params.Repo,
		talents:       params.Talents,
		schools:       params.Schools,
		notifications: params.Notifications,
		cache:         params.Cache,
		logger:        logger,
		cfg:           cfg,
	}
}

// Summary returns the caller's dashboard and whether it was served from cache. The unread
// notification count is always read live.
func (s *DashboardService) Summary(ctx context.Context, actor models.Actor) (*dto.DashboardSummary, bool, error) {
	key := summaryCacheKey(actor)

	var summary dto.DashboardSummary
	hit := s.cache != nil && s.cache.Get(ctx, key, &summary)
	if !hit {
		composed, err := s.compose(ctx, actor)
		if err != nil {
			return nil, false, err
		}
		summary = *composed
		if s.cache != nil {
			s.cache.Set(ctx, key, summary, s.cfg.CacheTTL)
		}
	}

	if actor.Role == models.RoleGTK && s.notifications != nil {
		unread, err := s.notifications.CountUnread(ctx, actor.UserID)
		if err != nil {
			s.logger.Warn("failed to count unread notifications", zap.String("user_id", actor.UserID), zap.Error(err))
		}
		summary.UnreadNotifications = unread
	}
	return &summary, hit, nil
}

// SchoolStatistics lists per-school personnel and talent counts. School admins only see their
// own school.
func (s *DashboardService) SchoolStatistics(ctx context.Context, actor models.Actor) ([]models.SchoolStatistics, error) {
	if !actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	rows, err := s.repo.SchoolStatistics(ctx, s.cfg.StatsMaxRows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school statistics")
	}
	if actor.Role == models.RoleSuperAdmin {
		if rows == nil {
			rows = []models.SchoolStatistics{}
		}
		return rows, nil
	}
	scoped := make([]models.SchoolStatistics, 0, 1)
	for _, row := range rows {
		if models.CanViewSchool(actor, row.ID) {
			scoped = append(scoped, row)
		}
	}
	return scoped, nil
}

// TalentStatistics breaks talents visible to the actor down by kind, status, level and field.
func (s *DashboardService) TalentStatistics(ctx context.Context, actor models.Actor) (*models.TalentStatistics, error) {
	if !actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	scope := models.ScopeTalentFilter(actor, models.TalentFilter{})

	stats := &models.TalentStatistics{}
	for _, axis := range []struct {
		column string
		dest   *map[string]int
	}{
		{"kind", &stats.ByKind},
		{"status", &stats.ByStatus},
		{"level", &stats.ByLevel},
		{"field", &stats.ByField},
	} {
		rows, err := s.repo.CountTalentsBy(ctx, scope, axis.column)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load talent statistics")
		}
		*axis.dest = models.CountMap(rows)
	}
	stats.Total = sum(stats.ByStatus)
	return stats, nil
}

func (s *DashboardService) compose(ctx context.Context, actor models.Actor) (*dto.DashboardSummary, error) {
	switch actor.Role {
	case models.RoleSuperAdmin:
		return s.composeSuperAdmin(ctx)
	case models.RoleAdminSekolah:
		return s.composeSchoolAdmin(ctx, actor)
	case models.RoleGTK:
		return s.composeGTK(ctx, actor)
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
}

func (s *DashboardService) composeSuperAdmin(ctx context.Context) (*dto.DashboardSummary, error) {
	schools, err := s.repo.CountSchools(ctx)
	if err != nil {
		return nil, dashboardError(err)
	}
	roleRows, err := s.repo.CountUsersByRole(ctx)
	if err != nil {
		return nil, dashboardError(err)
	}
	gtkRows, err := s.repo.CountGTKByType(ctx, nil)
	if err != nil {
		return nil, dashboardError(err)
	}
	byStatus, err := s.repo.CountTalentsBy(ctx, models.TalentFilter{}, "status")
	if err != nil {
		return nil, dashboardError(err)
	}
	byKind, err := s.repo.CountTalentsBy(ctx, models.TalentFilter{}, "kind")
	if err != nil {
		return nil, dashboardError(err)
	}

	roles := models.CountMap(roleRows)
	statuses := models.CountMap(byStatus)
	return &dto.DashboardSummary{
		TotalSchools:         schools,
		TotalUsers:           sum(roles),
		TotalGTK:             roles[string(models.RoleGTK)],
		TotalAdminSekolah:    roles[string(models.RoleAdminSekolah)],
		GTKByType:            models.CountMap(gtkRows),
		TotalTalents:         sum(statuses),
		TalentsByStatus:      statuses,
		TalentsByType:        models.CountMap(byKind),
		PendingVerifications: statuses[string(models.TalentStatusPending)],
	}, nil
}

func (s *DashboardService) composeSchoolAdmin(ctx context.Context, actor models.Actor) (*dto.DashboardSummary, error) {
	summary := &dto.DashboardSummary{}
	if actor.SchoolID != nil && s.schools != nil {
		if school, err := s.schools.FindByID(ctx, *actor.SchoolID); err == nil {
			summary.School = &dto.SchoolRef{ID: school.ID, Name: school.Name}
		} else {
			s.logger.Warn("failed to load dashboard school", zap.String("school_id", *actor.SchoolID), zap.Error(err))
		}
	}

	gtkRows, err := s.repo.CountGTKByType(ctx, actor.SchoolID)
	if err != nil {
		return nil, dashboardError(err)
	}
	scope := models.ScopeTalentFilter(actor, models.TalentFilter{})
	byStatus, err := s.repo.CountTalentsBy(ctx, scope, "status")
	if err != nil {
		return nil, dashboardError(err)
	}

	summary.GTKByType = models.CountMap(gtkRows)
	summary.TotalGTK = sum(summary.GTKByType)
	summary.TalentsByStatus = models.CountMap(byStatus)
	summary.TotalTalents = sum(summary.TalentsByStatus)
	summary.PendingVerifications = summary.TalentsByStatus[string(models.TalentStatusPending)]

	if s.talents != nil && summary.PendingVerifications > 0 {
		pending := models.TalentStatusPending
		scope.Status = &pending
		scope.Page, scope.PageSize = 1, s.cfg.RecentLimit
		recent, _, err := s.talents.List(ctx, scope)
		if err != nil {
			return nil, dashboardError(err)
		}
		for i := range recent {
			resp, err := toTalentResponse(&recent[i])
			if err != nil {
				s.logger.Warn("skipping undecodable talent", zap.String("talent_id", recent[i].ID), zap.Error(err))
				continue
			}
			summary.RecentTalents = append(summary.RecentTalents, *resp)
		}
	}
	return summary, nil
}

func (s *DashboardService) composeGTK(ctx context.Context, actor models.Actor) (*dto.DashboardSummary, error) {
	scope := models.ScopeTalentFilter(actor, models.TalentFilter{})
	byStatus, err := s.repo.CountTalentsBy(ctx, scope, "status")
	if err != nil {
		return nil, dashboardError(err)
	}
	mine := models.CountMap(byStatus)
	for _, status := range []models.TalentStatus{models.TalentStatusPending, models.TalentStatusApproved, models.TalentStatusRejected} {
		if _, ok := mine[string(status)]; !ok {
			mine[string(status)] = 0
		}
	}
	return &dto.DashboardSummary{MyTalents: mine, TotalTalents: sum(mine)}, nil
}

func summaryCacheKey(actor models.Actor) string {
	switch actor.Role {
	case models.RoleSuperAdmin:
		return CacheKey("dashboard", "summary", string(actor.Role))
	case models.RoleAdminSekolah:
		school := ""
		if actor.SchoolID != nil {
			school = *actor.SchoolID
		}
		return CacheKey("dashboard", "summary", string(actor.Role), school)
	}
	return CacheKey("dashboard", "summary", string(actor.Role), actor.UserID)
}

func dashboardError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compose dashboard")
}

func sum(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
