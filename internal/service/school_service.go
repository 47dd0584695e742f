package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

type schoolRepository interface {
	Create(ctx context.Context, school *models.School) error
	FindByID(ctx context.Context, id string) (*models.School, error)
	NPSNExists(ctx context.Context, npsn, excludeID string) (bool, error)
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	Update(ctx context.Context, school *models.School) error
	Delete(ctx context.Context, id string) error
	CountGTKByType(ctx context.Context, schoolID string) ([]models.GroupCount, error)
}

type schoolUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// SchoolService manages schools. Writes are reserved for super admins.
type SchoolService struct {
	repo      schoolRepository
	users     schoolUserRepository
	audit     auditRecorder
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs a SchoolService.
func NewSchoolService(repo schoolRepository, users schoolUserRepository, audit auditRecorder, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &SchoolService{repo: repo, users: users, audit: audit, cache: cache, validator: validate, logger: logger}
}

// Create registers a school. NPSN must be unique.
func (s *SchoolService) Create(ctx context.Context, actor models.Actor, req dto.CreateSchoolRequest, meta RequestMeta) (*models.School, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid school payload")
	}
	if err := s.ensureUniqueNPSN(ctx, req.NPSN, ""); err != nil {
		return nil, err
	}

	school := &models.School{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(req.Name),
		NPSN:    req.NPSN,
		Status:  models.SchoolStatus(req.Status),
		Address: strings.TrimSpace(req.Address),
	}
	if err := s.repo.Create(ctx, school); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "npsn already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}

	payload, _ := json.Marshal(school)
	writeAudit(ctx, s.audit, s.logger, actor, meta, &models.AuditLog{
		Action:     models.AuditActionSchoolCreate,
		Resource:   "schools",
		ResourceID: &school.ID,
		NewValues:  payload,
	})
	s.invalidate(ctx)
	return school, nil
}

// Get returns a school with its GTK counts.
func (s *SchoolService) Get(ctx context.Context, actor models.Actor, id string) (*models.SchoolDetail, error) {
	if !models.CanViewSchool(actor, id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}
	school, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.CountGTKByType(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count school personnel")
	}
	counts := models.CountMap(rows)
	detail := &models.SchoolDetail{
		School:             *school,
		GuruCount:          counts[string(models.GTKTypeGuru)],
		TendikCount:        counts[string(models.GTKTypeTendik)],
		KepalaSekolahCount: counts[string(models.GTKTypeKepalaSekolah)],
	}
	for _, n := range counts {
		detail.GTKCount += n
	}
	return detail, nil
}

// List returns schools. Every authenticated role may browse the directory.
func (s *SchoolService) List(ctx context.Context, query dto.SchoolQuery) ([]models.School, *models.Pagination, error) {
	filter := models.SchoolFilter{Search: strings.TrimSpace(query.Search)}
	if query.Status != "" {
		status := models.SchoolStatus(query.Status)
		if status != models.SchoolStatusNegeri && status != models.SchoolStatusSwasta {
			return nil, nil, appErrors.Validation("invalid school filter", appErrors.FieldError{Field: "status", Message: "status must be one of negeri swasta"})
		}
		filter.Status = &status
	}
	filter.Page, filter.PageSize = normalizePaging(query.Page, query.PageSize)

	schools, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	if schools == nil {
		schools = []models.School{}
	}
	return schools, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Update patches a school. A head master must be a member of the school.
func (s *SchoolService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateSchoolRequest, meta RequestMeta) (*models.School, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid school payload")
	}
	school, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	old, _ := json.Marshal(school)

	if req.NPSN != nil && *req.NPSN != school.NPSN {
		if err := s.ensureUniqueNPSN(ctx, *req.NPSN, id); err != nil {
			return nil, err
		}
		school.NPSN = *req.NPSN
	}
	if req.Name != nil {
		school.Name = strings.TrimSpace(*req.Name)
	}
	if req.Status != nil {
		school.Status = models.SchoolStatus(*req.Status)
	}
	if req.Address != nil {
		school.Address = strings.TrimSpace(*req.Address)
	}
	if req.HeadMasterID != nil {
		head, err := s.users.FindByID(ctx, *req.HeadMasterID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load head master")
		}
		if head == nil || head.SchoolID == nil || *head.SchoolID != id {
			return nil, appErrors.Validation("invalid school payload", appErrors.FieldError{Field: "head_master_id", Message: "head master must belong to this school"})
		}
		school.HeadMasterID = req.HeadMasterID
	}

	if err := s.repo.Update(ctx, school); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		case isUniqueViolation(err):
			return nil, appErrors.Clone(appErrors.ErrConflict, "npsn already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}

	payload, _ := json.Marshal(school)
	writeAudit(ctx, s.audit, s.logger, actor, meta, &models.AuditLog{
		Action:     models.AuditActionSchoolUpdate,
		Resource:   "schools",
		ResourceID: &school.ID,
		OldValues:  old,
		NewValues:  payload,
	})
	s.invalidate(ctx)

	if fresh, err := s.repo.FindByID(ctx, id); err == nil {
		return fresh, nil
	}
	return school, nil
}

// Delete removes a school that no longer has members.
func (s *SchoolService) Delete(ctx context.Context, actor models.Actor, id string, meta RequestMeta) error {
	if actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		case isForeignKeyViolation(err):
			return appErrors.Clone(appErrors.ErrConflict, "school still has users")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school")
	}
	writeAudit(ctx, s.audit, s.logger, actor, meta, &models.AuditLog{
		Action:     models.AuditActionSchoolDelete,
		Resource:   "schools",
		ResourceID: &id,
	})
	s.invalidate(ctx)
	return nil
}

// Users lists the members of a school. School admins are limited to their own school.
func (s *SchoolService) Users(ctx context.Context, actor models.Actor, id string, query dto.UserQuery) ([]models.User, *models.Pagination, error) {
	if !models.CanViewSchool(actor, id) {
		if actor.Role == models.RoleAdminSekolah {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "school admins may only list their own school")
		}
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, nil, err
	}
	filter, err := userFilterFromQuery(query)
	if err != nil {
		return nil, nil, err
	}
	filter.SchoolID = &id
	filter.Page, filter.PageSize = normalizePaging(query.Page, query.PageSize)

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list school users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *SchoolService) load(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

func (s *SchoolService) ensureUniqueNPSN(ctx context.Context, npsn, excludeID string) error {
	exists, err := s.repo.NPSNExists(ctx, npsn, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check npsn")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "npsn already registered")
	}
	return nil
}

func (s *SchoolService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, CacheDashboardPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
