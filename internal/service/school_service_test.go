package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

type stubSchoolRepo struct {
	schools   map[string]*models.School
	gtk       map[string][]models.GroupCount
	deleteErr error
}

func (r *stubSchoolRepo) Create(ctx context.Context, school *models.School) error {
	cp := *school
	r.schools[school.ID] = &cp
	return nil
}

func (r *stubSchoolRepo) FindByID(ctx context.Context, id string) (*models.School, error) {
	s, ok := r.schools[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r *stubSchoolRepo) NPSNExists(ctx context.Context, npsn, excludeID string) (bool, error) {
	for _, s := range r.schools {
		if s.NPSN == npsn && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubSchoolRepo) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	var out []models.School
	for _, s := range r.schools {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (r *stubSchoolRepo) Update(ctx context.Context, school *models.School) error {
	if _, ok := r.schools[school.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *school
	r.schools[school.ID] = &cp
	return nil
}

func (r *stubSchoolRepo) Delete(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.schools[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.schools, id)
	return nil
}

func (r *stubSchoolRepo) CountGTKByType(ctx context.Context, schoolID string) ([]models.GroupCount, error) {
	return r.gtk[schoolID], nil
}

type schoolFixture struct {
	svc   *SchoolService
	repo  *stubSchoolRepo
	users *stubUserRepo
	cache *stubInvalidator
	audit *stubAudit
}

func newSchoolFixture() *schoolFixture {
	f := &schoolFixture{
		repo: &stubSchoolRepo{
			schools: map[string]*models.School{
				"school-1": {ID: "school-1", Name: "SMAN 1 Kota", NPSN: "20100001", Status: models.SchoolStatusNegeri},
				"school-2": {ID: "school-2", Name: "SMA Swasta Bakti", NPSN: "20100002", Status: models.SchoolStatusSwasta},
			},
			gtk: map[string][]models.GroupCount{
				"school-1": {{Key: "guru", Count: 12}, {Key: "tendik", Count: 4}, {Key: "kepala_sekolah", Count: 1}},
			},
		},
		users: newStubUserRepo(),
		cache: &stubInvalidator{},
		audit: &stubAudit{},
	}
	f.svc = NewSchoolService(f.repo, f.users, f.audit, f.cache, nil, nil)
	return f
}

func TestCreateSchool(t *testing.T) {
	f := newSchoolFixture()
	ctx := context.Background()

	school, err := f.svc.Create(ctx, superAdmin, dto.CreateSchoolRequest{Name: " SMAN 3 ", NPSN: "20100003", Status: "negeri"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "SMAN 3", school.Name)
	assert.Equal(t, []string{"dashboard:*"}, f.cache.patterns)
	assert.Len(t, f.audit.logs, 1)

	_, err = f.svc.Create(ctx, superAdmin, dto.CreateSchoolRequest{Name: "Duplikat", NPSN: "20100001", Status: "negeri"}, RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = f.svc.Create(ctx, superAdmin, dto.CreateSchoolRequest{Name: "Salah", NPSN: "123", Status: "negeri"}, RequestMeta{})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "npsn", appErrors.FromError(err).Details[0].Field)

	_, err = f.svc.Create(ctx, schoolAdmin, dto.CreateSchoolRequest{Name: "X", NPSN: "20100009", Status: "negeri"}, RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestGetSchoolDetailCountsGTK(t *testing.T) {
	f := newSchoolFixture()
	ctx := context.Background()

	detail, err := f.svc.Get(ctx, schoolAdmin, "school-1")
	require.NoError(t, err)
	assert.Equal(t, 17, detail.GTKCount)
	assert.Equal(t, 12, detail.GuruCount)
	assert.Equal(t, 4, detail.TendikCount)
	assert.Equal(t, 1, detail.KepalaSekolahCount)

	_, err = f.svc.Get(ctx, schoolAdmin, "school-2")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Get(ctx, superAdmin, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUpdateSchoolHeadMasterMustBelong(t *testing.T) {
	f := newSchoolFixture()
	ctx := context.Background()
	headMaster := "7c4e2b10-0d4f-4f6a-8a1b-2c3d4e5f6a7b"
	f.users.users[headMaster] = &models.User{ID: headMaster, Role: models.RoleGTK, SchoolID: strPtr("school-2")}

	_, err := f.svc.Update(ctx, superAdmin, "school-1", dto.UpdateSchoolRequest{HeadMasterID: &headMaster}, RequestMeta{})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "head_master_id", appErrors.FromError(err).Details[0].Field)

	_, err = f.svc.Update(ctx, superAdmin, "school-2", dto.UpdateSchoolRequest{NPSN: strPtr("20100001")}, RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	school, err := f.svc.Update(ctx, superAdmin, "school-2", dto.UpdateSchoolRequest{HeadMasterID: &headMaster, Address: strPtr("Jl. Merdeka 1")}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, headMaster, *school.HeadMasterID)
	assert.Equal(t, "Jl. Merdeka 1", school.Address)
}

func TestDeleteSchoolWithMembersConflicts(t *testing.T) {
	f := newSchoolFixture()
	ctx := context.Background()

	f.repo.deleteErr = fmt.Errorf("delete school: %w", &pq.Error{Code: pqForeignKeyViolation})
	err := f.svc.Delete(ctx, superAdmin, "school-1", RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	f.repo.deleteErr = nil
	require.NoError(t, f.svc.Delete(ctx, superAdmin, "school-2", RequestMeta{}))
	err = f.svc.Delete(ctx, superAdmin, "school-2", RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSchoolUsersScope(t *testing.T) {
	f := newSchoolFixture()
	ctx := context.Background()

	users, _, err := f.svc.Users(ctx, schoolAdmin, "school-1", dto.UserQuery{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "school-1", *f.users.lastFilter.SchoolID)

	_, _, err = f.svc.Users(ctx, schoolAdmin, "school-2", dto.UserQuery{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, _, err = f.svc.List(ctx, dto.SchoolQuery{Status: "internasional"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
