package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	EmailExists(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type schoolLookup interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// UserService handles account administration and the caller's own profile.
type UserService struct {
	repo      userRepository
	schools   schoolLookup
	uploads   uploadResolver
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, schools schoolLookup, uploads uploadResolver, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, schools: schools, uploads: uploads, audit: audit, validator: validate, logger: logger}
}

// List returns users visible to the actor. School admins only see their own school.
func (s *UserService) List(ctx context.Context, actor models.Actor, query dto.UserQuery) ([]models.User, *models.Pagination, error) {
	if !actor.Role.IsReviewer() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	filter, err := userFilterFromQuery(query)
	if err != nil {
		return nil, nil, err
	}
	if actor.Role == models.RoleAdminSekolah {
		filter.SchoolID = scopedSchool(actor)
	}
	filter.Page, filter.PageSize = normalizePaging(query.Page, query.PageSize)

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID. Users outside the actor's reach are reported as not found.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return user, nil
	case models.RoleAdminSekolah:
		if actor.InSchool(user.SchoolID) {
			return user, nil
		}
	default:
		if user.ID == actor.UserID {
			return user, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

// Create provisions an account. School admins may only create GTK accounts in their school.
func (s *UserService) Create(ctx context.Context, actor models.Actor, req dto.CreateUserRequest, meta RequestMeta) (*models.User, error) {
	if !actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}

	if actor.Role == models.RoleAdminSekolah {
		if req.Role != models.RoleGTK {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "school admins may only create gtk accounts")
		}
		if req.SchoolID != nil && !actor.InSchool(req.SchoolID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "school admins may only create accounts in their own school")
		}
		req.SchoolID = actor.SchoolID
	}
	if req.Role != models.RoleSuperAdmin && req.SchoolID == nil {
		return nil, appErrors.Validation("invalid create user payload", appErrors.FieldError{Field: "school_id", Message: "school_id is required for this role"})
	}
	if err := s.ensureSchool(ctx, req.SchoolID); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.EmailExists(ctx, email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}

	birthDate, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         req.Role,
		FullName:     strings.TrimSpace(req.FullName),
		NUPTK:        req.NUPTK,
		NIP:          req.NIP,
		Gender:       (*models.Gender)(req.Gender),
		BirthDate:    birthDate,
		GTKType:      (*models.GTKType)(req.GTKType),
		Position:     req.Position,
		SchoolID:     req.SchoolID,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role, "school_id": user.SchoolID})
	writeAudit(ctx, s.audit, s.logger, actor, meta, &models.AuditLog{
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  newPayload,
	})
	return user, nil
}

// Update modifies account attributes of a user the actor manages.
func (s *UserService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateUserRequest, meta RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update user payload")
	}
	user, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.SchoolID != nil {
		if actor.Role == models.RoleAdminSekolah && !actor.InSchool(req.SchoolID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "school admins may not move accounts to another school")
		}
		if err := s.ensureSchool(ctx, req.SchoolID); err != nil {
			return nil, err
		}
	}
	birthDate, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return nil, err
	}

	oldPayload, _ := json.Marshal(user)
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.NUPTK != nil {
		user.NUPTK = req.NUPTK
	}
	if req.NIP != nil {
		user.NIP = req.NIP
	}
	if req.Gender != nil {
		user.Gender = (*models.Gender)(req.Gender)
	}
	if birthDate != nil {
		user.BirthDate = birthDate
	}
	if req.GTKType != nil {
		user.GTKType = (*models.GTKType)(req.GTKType)
	}
	if req.Position != nil {
		user.Position = req.Position
	}
	if req.SchoolID != nil {
		user.SchoolID = req.SchoolID
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	newPayload, _ := json.Marshal(user)
	writeAudit(ctx, s.audit, s.logger, actor, meta, &models.AuditLog{
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
	})
	return s.reload(ctx, user), nil
}

// SetActive activates or deactivates an account the actor manages.
func (s *UserService) SetActive(ctx context.Context, actor models.Actor, id string, active bool, meta RequestMeta) error {
	if id == actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot change activation of your own account")
	}
	user, err := s.managed(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user status")
	}

	oldPayload, _ := json.Marshal(map[string]bool{"is_active": user.IsActive})
	newPayload, _ := json.Marshal(map[string]bool{"is_active": active})
	writeAudit(ctx, s.audit, s.logger, actor, meta, &models.AuditLog{
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
	})
	return nil
}

// Delete hard-deletes an account. Only super admins may delete.
func (s *UserService) Delete(ctx context.Context, actor models.Actor, id string, meta RequestMeta) error {
	if actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	if id == actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete your own account")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		if isForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "user is still referenced")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"email": user.Email, "role": user.Role})
	writeAudit(ctx, s.audit, s.logger, actor, meta, &models.AuditLog{
		Action:     models.AuditActionUserDelete,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
	})
	return nil
}

// Profile returns the caller's own account.
func (s *UserService) Profile(ctx context.Context, actor models.Actor) (*models.User, error) {
	return s.load(ctx, actor.UserID)
}

// UpdateProfile patches the caller's own profile. A photo upload is attached only when the
// write succeeds, and the replaced photo is scheduled for deletion.
func (s *UserService) UpdateProfile(ctx context.Context, actor models.Actor, req dto.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid profile payload")
	}
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	birthDate, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, appErrors.Validation("invalid profile payload", appErrors.FieldError{Field: "full_name", Message: "full_name must not be blank"})
		}
		user.FullName = name
	}
	if req.Gender != nil {
		user.Gender = (*models.Gender)(req.Gender)
	}
	if birthDate != nil {
		user.BirthDate = birthDate
	}
	if req.Position != nil {
		user.Position = req.Position
	}
	previousPhoto := user.PhotoURL
	var photo *models.UploadSession
	if req.PhotoUploadID != nil {
		if photo, err = s.uploads.Resolve(ctx, actor, *req.PhotoUploadID, models.UploadProfilePhoto); err != nil {
			return nil, err
		}
		url := photo.FileURL
		user.PhotoURL = &url
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if photo != nil {
			s.uploads.Restore(ctx, photo)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	if photo != nil {
		s.uploads.Attached(ctx, photo, previousPhoto)
	}
	return s.reload(ctx, user), nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// managed loads id and checks that actor may administer it. Admins get NotFound for accounts
// outside their school and Forbidden for non-GTK accounts inside it.
func (s *UserService) managed(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if !actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.CanManageUser(actor, user) {
		return user, nil
	}
	if actor.Role == models.RoleAdminSekolah && !actor.InSchool(user.SchoolID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "school admins may only manage gtk accounts")
}

func (s *UserService) ensureSchool(ctx context.Context, schoolID *string) error {
	if schoolID == nil || s.schools == nil {
		return nil
	}
	if _, err := s.schools.FindByID(ctx, *schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Validation("invalid user payload", appErrors.FieldError{Field: "school_id", Message: "school not found"})
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return nil
}

// reload refreshes joined display columns, falling back to the in-memory row.
func (s *UserService) reload(ctx context.Context, user *models.User) *models.User {
	fresh, err := s.repo.FindByID(ctx, user.ID)
	if err != nil {
		return user
	}
	return fresh
}

func userFilterFromQuery(q dto.UserQuery) (models.UserFilter, error) {
	filter := models.UserFilter{Search: strings.TrimSpace(q.Search)}
	if q.Role != "" {
		role := models.UserRole(q.Role)
		if !role.Valid() {
			return filter, appErrors.Validation("invalid user filter", appErrors.FieldError{Field: "role", Message: "role must be one of super_admin admin_sekolah gtk"})
		}
		filter.Role = &role
	}
	if q.GTKType != "" {
		switch t := models.GTKType(q.GTKType); t {
		case models.GTKTypeGuru, models.GTKTypeTendik, models.GTKTypeKepalaSekolah:
			filter.GTKType = &t
		default:
			return filter, appErrors.Validation("invalid user filter", appErrors.FieldError{Field: "gtk_type", Message: "gtk_type must be one of guru tendik kepala_sekolah"})
		}
	}
	if q.SchoolID != "" {
		school := q.SchoolID
		filter.SchoolID = &school
	}
	if q.Active != "" {
		active, err := strconv.ParseBool(q.Active)
		if err != nil {
			return filter, appErrors.Validation("invalid user filter", appErrors.FieldError{Field: "is_active", Message: "is_active must be a boolean"})
		}
		filter.Active = &active
	}
	return filter, nil
}

func parseDate(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, appErrors.Validation("invalid date", appErrors.FieldError{Field: field, Message: field + " must use YYYY-MM-DD"})
	}
	return &t, nil
}
