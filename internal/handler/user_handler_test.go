package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	"github.com/noah-isme/sipodi-api/internal/service"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

type fakeUserSrv struct {
	query     dto.UserQuery
	createReq dto.CreateUserRequest
	activeID  string
	active    *bool
	profile   dto.UpdateProfileRequest
	err       error
}

func (f *fakeUserSrv) List(_ context.Context, _ models.Actor, query dto.UserQuery) ([]models.User, *models.Pagination, error) {
	f.query = query
	return []models.User{{ID: "gtk-1"}}, models.NewPagination(1, 20, 1), nil
}

func (f *fakeUserSrv) Get(_ context.Context, _ models.Actor, id string) (*models.User, error) {
	return &models.User{ID: id}, f.err
}

func (f *fakeUserSrv) Create(_ context.Context, _ models.Actor, req dto.CreateUserRequest, _ service.RequestMeta) (*models.User, error) {
	f.createReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: "new-user", Email: req.Email}, nil
}

func (f *fakeUserSrv) Update(_ context.Context, _ models.Actor, id string, _ dto.UpdateUserRequest, _ service.RequestMeta) (*models.User, error) {
	return &models.User{ID: id}, f.err
}

func (f *fakeUserSrv) SetActive(_ context.Context, _ models.Actor, id string, active bool, _ service.RequestMeta) error {
	f.activeID, f.active = id, &active
	return f.err
}

func (f *fakeUserSrv) Delete(context.Context, models.Actor, string, service.RequestMeta) error {
	return f.err
}

func (f *fakeUserSrv) Profile(_ context.Context, actor models.Actor) (*models.User, error) {
	return &models.User{ID: actor.UserID}, nil
}

func (f *fakeUserSrv) UpdateProfile(_ context.Context, actor models.Actor, req dto.UpdateProfileRequest) (*models.User, error) {
	f.profile = req
	return &models.User{ID: actor.UserID}, f.err
}

func TestUserHandlerListBindsQuery(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/api/v1/users?role=gtk&gtk_type=guru&is_active=true&page=3", nil, adminClaim)
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.UserQuery{Role: "gtk", GTKType: "guru", Active: "true", Page: 3}, srv.query)
}

func TestUserHandlerCreateConflict(t *testing.T) {
	srv := &fakeUserSrv{err: appErrors.Clone(appErrors.ErrConflict, "email already registered")}
	h := NewUserHandler(srv)

	body := map[string]string{"email": "guru@example.com", "password": "secret123", "role": "gtk", "full_name": "Budi"}
	c, rec := newTestContext(http.MethodPost, "/api/v1/users", body, adminClaim)
	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "guru@example.com", srv.createReq.Email)
}

func TestUserHandlerActivation(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)

	c, rec := newTestContext(http.MethodPatch, "/api/v1/users/6f7a8b9c-0d1e-4f2a-9b3c-5d6e7f8a9b04/deactivate", nil, adminClaim, gin.Param{Key: "id", Value: "6f7a8b9c-0d1e-4f2a-9b3c-5d6e7f8a9b04"})
	h.Deactivate(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "6f7a8b9c-0d1e-4f2a-9b3c-5d6e7f8a9b04", srv.activeID)
	require.NotNil(t, srv.active)
	assert.False(t, *srv.active)

	c, _ = newTestContext(http.MethodPatch, "/api/v1/users/6f7a8b9c-0d1e-4f2a-9b3c-5d6e7f8a9b04/activate", nil, adminClaim, gin.Param{Key: "id", Value: "6f7a8b9c-0d1e-4f2a-9b3c-5d6e7f8a9b04"})
	h.Activate(c)
	assert.True(t, *srv.active)
}

func TestUserHandlerProfile(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/api/v1/me", nil, gtkClaims)
	h.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var user map[string]interface{}
	decodeEnvelope(t, rec).decodeData(t, &user)
	assert.Equal(t, "gtk-1", user["id"])

	c, rec = newTestContext(http.MethodPatch, "/api/v1/me", map[string]string{"photo_upload_id": "8b0f5a52-3f7e-4d0a-b8a5-6c8f2d9e1a10"}, gtkClaims)
	h.UpdateMe(c)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.profile.PhotoUploadID)
	assert.Equal(t, "8b0f5a52-3f7e-4d0a-b8a5-6c8f2d9e1a10", *srv.profile.PhotoUploadID)
}

type fakeNotificationSrv struct {
	query  dto.NotificationQuery
	marked string
	err    error
}

func (f *fakeNotificationSrv) List(_ context.Context, _ models.Actor, query dto.NotificationQuery) ([]models.Notification, *models.Pagination, error) {
	f.query = query
	return []models.Notification{}, models.NewPagination(1, 20, 0), nil
}

func (f *fakeNotificationSrv) UnreadCount(context.Context, models.Actor) (int, error) {
	return 7, nil
}

func (f *fakeNotificationSrv) MarkRead(_ context.Context, _ models.Actor, id string) error {
	f.marked = id
	return f.err
}

func (f *fakeNotificationSrv) MarkAllRead(context.Context, models.Actor) (int64, error) {
	return 7, nil
}

func TestNotificationHandler(t *testing.T) {
	srv := &fakeNotificationSrv{}
	h := NewNotificationHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/api/v1/notifications?unread_only=true", nil, gtkClaims)
	h.List(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.query.UnreadOnly)

	c, rec = newTestContext(http.MethodGet, "/api/v1/notifications/unread-count", nil, gtkClaims)
	h.UnreadCount(c)
	var count dto.UnreadCount
	decodeEnvelope(t, rec).decodeData(t, &count)
	assert.Equal(t, 7, count.Count)

	srv.err = appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	c, rec = newTestContext(http.MethodPatch, "/api/v1/notifications/7a8b9c0d-1e2f-4a3b-8c4d-6e7f8a9b0c15/read", nil, gtkClaims, gin.Param{Key: "id", Value: "7a8b9c0d-1e2f-4a3b-8c4d-6e7f8a9b0c15"})
	h.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "7a8b9c0d-1e2f-4a3b-8c4d-6e7f8a9b0c15", srv.marked)
}

type fakeSchoolSrv struct {
	usersID string
	err     error
}

func (f *fakeSchoolSrv) Create(_ context.Context, _ models.Actor, req dto.CreateSchoolRequest, _ service.RequestMeta) (*models.School, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.School{ID: "school-9", Name: req.Name, NPSN: req.NPSN}, nil
}

func (f *fakeSchoolSrv) Get(_ context.Context, _ models.Actor, id string) (*models.SchoolDetail, error) {
	return &models.SchoolDetail{School: models.School{ID: id}}, f.err
}

func (f *fakeSchoolSrv) List(context.Context, dto.SchoolQuery) ([]models.School, *models.Pagination, error) {
	return []models.School{}, models.NewPagination(1, 20, 0), nil
}

func (f *fakeSchoolSrv) Update(_ context.Context, _ models.Actor, id string, _ dto.UpdateSchoolRequest, _ service.RequestMeta) (*models.School, error) {
	return &models.School{ID: id}, f.err
}

func (f *fakeSchoolSrv) Delete(context.Context, models.Actor, string, service.RequestMeta) error {
	return f.err
}

func (f *fakeSchoolSrv) Users(_ context.Context, _ models.Actor, id string, _ dto.UserQuery) ([]models.User, *models.Pagination, error) {
	f.usersID = id
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.User{}, models.NewPagination(1, 20, 0), nil
}

func TestSchoolHandler(t *testing.T) {
	srv := &fakeSchoolSrv{}
	h := NewSchoolHandler(srv)

	body := map[string]string{"name": "SMA 9", "npsn": "20100009", "status": "negeri"}
	c, rec := newTestContext(http.MethodPost, "/api/v1/schools", body, &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin})
	h.Create(c)
	require.Equal(t, http.StatusCreated, rec.Code)

	srv.err = appErrors.Clone(appErrors.ErrForbidden, "cannot view users of another school")
	c, rec = newTestContext(http.MethodGet, "/api/v1/schools/8b9c0d1e-2f3a-4b4c-9d5e-7f8a9b0c1d26/users", nil, adminClaim, gin.Param{Key: "id", Value: "8b9c0d1e-2f3a-4b4c-9d5e-7f8a9b0c1d26"})
	h.Users(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "8b9c0d1e-2f3a-4b4c-9d5e-7f8a9b0c1d26", srv.usersID)
}
