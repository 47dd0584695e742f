package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

type stubTalentRepo struct {
	mu         sync.Mutex
	talents    map[string]*models.Talent
	schoolOf   map[string]string
	createErr    error
	findErr      error
	lastFilter   models.TalentFilter
	beforeUpdate func()
}

func newStubTalentRepo() *stubTalentRepo {
	return &stubTalentRepo{talents: map[string]*models.Talent{}, schoolOf: map[string]string{}}
}

func (r *stubTalentRepo) Create(ctx context.Context, talent *models.Talent) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	talent.Status = models.TalentStatusPending
	talent.CreatedAt = time.Now().UTC()
	talent.UpdatedAt = talent.CreatedAt
	copy := *talent
	if school, ok := r.schoolOf[talent.UserID]; ok {
		copy.SchoolID = &school
	}
	r.talents[talent.ID] = &copy
	return nil
}

func (r *stubTalentRepo) GetByID(ctx context.Context, id string) (*models.Talent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.talents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *t
	return &copy, nil
}

func (r *stubTalentRepo) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Talent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := make(map[string]*models.Talent, len(ids))
	for _, id := range ids {
		if t, ok := r.talents[id]; ok {
			copy := *t
			out[id] = &copy
		}
	}
	return out, nil
}

func (r *stubTalentRepo) List(ctx context.Context, filter models.TalentFilter) ([]models.Talent, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter
	var out []models.Talent
	for _, t := range r.talents {
		if filter.UserID != nil && t.UserID != *filter.UserID {
			continue
		}
		if filter.SchoolID != nil && (t.SchoolID == nil || *t.SchoolID != *filter.SchoolID) {
			continue
		}
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (r *stubTalentRepo) UpdatePending(ctx context.Context, talent *models.Talent) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.talents[talent.ID]
	if !ok || stored.Status != models.TalentStatusPending || stored.UserID != talent.UserID {
		return sql.ErrNoRows
	}
	stored.DetailJSON = talent.DetailJSON
	stored.AttachmentURL = talent.AttachmentURL
	stored.AttachmentUploadID = talent.AttachmentUploadID
	return nil
}

func (r *stubTalentRepo) DeletePending(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.talents[id]
	if !ok || stored.Status != models.TalentStatusPending || stored.UserID != userID {
		return sql.ErrNoRows
	}
	delete(r.talents, id)
	return nil
}

func (r *stubTalentRepo) ApplyDecision(ctx context.Context, id string, d models.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.talents[id]
	if !ok || stored.Status != models.TalentStatusPending {
		return sql.ErrNoRows
	}
	stored.Status = d.Outcome
	stored.VerifiedBy = &d.ReviewerID
	at := d.At
	stored.VerifiedAt = &at
	if d.Outcome == models.TalentStatusRejected {
		reason := d.Reason
		stored.RejectionReason = &reason
	}
	return nil
}

type stubEventRepo struct {
	events []models.TalentEvent
}

func (r *stubEventRepo) Append(ctx context.Context, event *models.TalentEvent) error {
	r.events = append(r.events, *event)
	return nil
}

func (r *stubEventRepo) ListByTalent(ctx context.Context, talentID string) ([]models.TalentEvent, error) {
	var out []models.TalentEvent
	for _, e := range r.events {
		if e.TalentID == talentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubResolver struct {
	sessions map[string]*models.UploadSession
	attached []string
	replaced []string
}

func (r *stubResolver) Resolve(ctx context.Context, actor models.Actor, uploadID string, purpose models.UploadPurpose) (*models.UploadSession, error) {
	s, ok := r.sessions[uploadID]
	if !ok || s.OwnerID != actor.UserID || s.Purpose != purpose {
		return nil, appErrors.Validation("invalid upload reference", appErrors.FieldError{Field: "upload_id", Message: "upload not found or expired"})
	}
	delete(r.sessions, uploadID)
	return s, nil
}

func (r *stubResolver) Attached(ctx context.Context, session *models.UploadSession, replacedURL *string) {
	r.attached = append(r.attached, session.ID)
	if replacedURL != nil {
		r.replaced = append(r.replaced, *replacedURL)
	}
}

func (r *stubResolver) Restore(ctx context.Context, session *models.UploadSession) {
	r.sessions[session.ID] = session
}

type stubNotifier struct {
	sent []models.Notification
}

func (n *stubNotifier) Notify(ctx context.Context, notification *models.Notification) {
	n.sent = append(n.sent, *notification)
}

type stubInvalidator struct {
	patterns []string
}

func (c *stubInvalidator) Invalidate(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return nil
}

type talentFixture struct {
	svc      *TalentService
	repo     *stubTalentRepo
	events   *stubEventRepo
	uploads  *stubResolver
	notifier *stubNotifier
	cache    *stubInvalidator
}

func newTalentFixture() *talentFixture {
	f := &talentFixture{
		repo:     newStubTalentRepo(),
		events:   &stubEventRepo{},
		uploads:  &stubResolver{sessions: map[string]*models.UploadSession{}},
		notifier: &stubNotifier{},
		cache:    &stubInvalidator{},
	}
	f.svc = NewTalentService(TalentServiceParams{
		Repo:     f.repo,
		Events:   f.events,
		Uploads:  f.uploads,
		Notifier: f.notifier,
		Cache:    f.cache,
		Metrics:  NewMetricsService(),
		Logger:   zap.NewNop(),
	})
	f.repo.schoolOf["gtk-1"] = "school-1"
	f.repo.schoolOf["gtk-2"] = "school-2"
	return f
}

func strPtr(s string) *string { return &s }

var (
	gtkActor       = models.Actor{UserID: "gtk-1", Role: models.RoleGTK, SchoolID: strPtr("school-1")}
	otherGTK       = models.Actor{UserID: "gtk-2", Role: models.RoleGTK, SchoolID: strPtr("school-2")}
	schoolAdmin    = models.Actor{UserID: "adm-1", Role: models.RoleAdminSekolah, SchoolID: strPtr("school-1")}
	foreignAdmin   = models.Actor{UserID: "adm-2", Role: models.RoleAdminSekolah, SchoolID: strPtr("school-2")}
	superAdmin     = models.Actor{UserID: "root", Role: models.RoleSuperAdmin}
	trainingDetail = json.RawMessage(`{"activity_name":"Workshop A","organizer":"Dinas","start_date":"2024-01-10","duration_days":3}`)
)

func (f *talentFixture) create(t *testing.T, actor models.Actor) *dto.TalentResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), actor, dto.CreateTalentRequest{TalentType: models.KindTraining, Detail: trainingDetail})
	require.NoError(t, err)
	return resp
}

func TestTalentCreateApproveEndToEnd(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()

	created := f.create(t, gtkActor)
	assert.Equal(t, models.TalentStatusPending, created.Status)
	assert.Nil(t, created.Decision)

	_, err := f.svc.Approve(ctx, schoolAdmin, created.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, gtkActor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TalentStatusApproved, got.Status)
	require.NotNil(t, got.Decision)
	assert.Equal(t, "adm-1", got.Decision.Reviewer.ID)
	assert.Nil(t, got.Decision.Reason)

	detail, ok := got.Detail.(models.TrainingDetail)
	require.True(t, ok)
	assert.Equal(t, "Workshop A", detail.ActivityName)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, models.NotificationTalentApproved, f.notifier.sent[0].Type)
	assert.Equal(t, "gtk-1", f.notifier.sent[0].UserID)

	types := []models.TalentEventType{}
	for _, e := range f.events.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []models.TalentEventType{models.TalentEventCreated, models.TalentEventApproved}, types)
	assert.Contains(t, f.cache.patterns, CacheDashboardPrefix+"*")
}

func TestTalentRejectRequiresReason(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	created := f.create(t, gtkActor)

	_, err := f.svc.Reject(ctx, schoolAdmin, created.ID, "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, "rejection_reason", appErrors.FromError(err).Details[0].Field)

	still, err := f.svc.Get(ctx, gtkActor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TalentStatusPending, still.Status)

	rejected, err := f.svc.Reject(ctx, schoolAdmin, created.ID, "Dokumen tidak valid")
	require.NoError(t, err)
	assert.Equal(t, models.TalentStatusRejected, rejected.Status)
	require.NotNil(t, rejected.Decision.Reason)
	assert.Equal(t, "Dokumen tidak valid", *rejected.Decision.Reason)
	assert.Equal(t, "Talenta Anda ditolak. Alasan: Dokumen tidak valid", f.notifier.sent[0].Message)
}

func TestTalentDecisionOnDecidedIsInvalidState(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	created := f.create(t, gtkActor)

	_, err := f.svc.Reject(ctx, superAdmin, created.ID, "Tidak lengkap")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, schoolAdmin, created.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	assert.Equal(t, "talent already decided", appErrors.FromError(err).Message)

	got, err := f.svc.Get(ctx, superAdmin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TalentStatusRejected, got.Status)
}

func TestTalentDecisionLostRaceIsInvalidState(t *testing.T) {
	f := newTalentFixture()
	created := f.create(t, gtkActor)
	racing := &racingRepo{stubTalentRepo: f.repo}
	f.svc.repo = racing

	_, err := f.svc.Approve(context.Background(), schoolAdmin, created.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	assert.Empty(t, f.notifier.sent)
}

// racingRepo decides the talent between the read and the guarded write.
type racingRepo struct {
	*stubTalentRepo
}

func (r *racingRepo) ApplyDecision(ctx context.Context, id string, d models.Decision) error {
	_ = r.stubTalentRepo.ApplyDecision(ctx, id, models.Rejection("someone-else", "duluan", d.At))
	return r.stubTalentRepo.ApplyDecision(ctx, id, d)
}

func TestTalentReviewerAuthorization(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	created := f.create(t, gtkActor)

	_, err := f.svc.Approve(ctx, otherGTK, created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.Approve(ctx, foreignAdmin, created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	self := models.Actor{UserID: "gtk-1", Role: models.RoleAdminSekolah, SchoolID: strPtr("school-1")}
	_, err = f.svc.Approve(ctx, self, created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.Approve(ctx, schoolAdmin, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTalentCreateValidation(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, gtkActor, dto.CreateTalentRequest{
		TalentType: models.KindTraining,
		Detail:     json.RawMessage(`{"activity_name":"Workshop A"}`),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	fields := map[string]bool{}
	for _, d := range appErr.Details {
		fields[d.Field] = true
	}
	assert.True(t, fields["detail.organizer"])
	assert.True(t, fields["detail.start_date"])
	assert.True(t, fields["detail.duration_days"])

	_, err = f.svc.Create(ctx, gtkActor, dto.CreateTalentRequest{
		TalentType: models.KindInterest,
		Detail:     json.RawMessage(`{"interest_name":"Catur","description":"x","extra":1}`),
	})
	require.Error(t, err)
	assert.Equal(t, "detail.extra", appErrors.FromError(err).Details[0].Field)

	_, err = f.svc.Create(ctx, gtkActor, dto.CreateTalentRequest{TalentType: "unknown", Detail: trainingDetail})
	require.Error(t, err)
	assert.Equal(t, "talent_type", appErrors.FromError(err).Details[0].Field)

	_, err = f.svc.Create(ctx, schoolAdmin, dto.CreateTalentRequest{TalentType: models.KindTraining, Detail: trainingDetail})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	assert.Empty(t, f.repo.talents)
	assert.Empty(t, f.events.events)
}

func TestTalentCreateAttachesConfirmedUpload(t *testing.T) {
	f := newTalentFixture()
	uploadID := "6f1d3c1e-9a57-4c1a-9d3e-3b0c8a9f2e11"
	f.uploads.sessions[uploadID] = &models.UploadSession{
		ID:      uploadID,
		OwnerID: "gtk-1",
		Purpose: models.UploadTalentCertificate,
		State:   models.UploadStateConfirmed,
		FileURL: "http://files/sipodi/talent_certificate/2024/01/up-1.pdf",
	}

	resp, err := f.svc.Create(context.Background(), gtkActor, dto.CreateTalentRequest{TalentType: models.KindTraining, Detail: trainingDetail, UploadID: &uploadID})
	require.NoError(t, err)
	require.NotNil(t, resp.Attachment)
	assert.Equal(t, "http://files/sipodi/talent_certificate/2024/01/up-1.pdf", resp.Attachment.URL)

	_, err = f.svc.Create(context.Background(), gtkActor, dto.CreateTalentRequest{TalentType: models.KindTraining, Detail: trainingDetail, UploadID: &uploadID})
	require.Error(t, err)
	assert.Equal(t, "upload_id", appErrors.FromError(err).Details[0].Field)
}

func (f *talentFixture) stageCertificate(id, url string) {
	f.uploads.sessions[id] = &models.UploadSession{
		ID:      id,
		OwnerID: "gtk-1",
		Purpose: models.UploadTalentCertificate,
		State:   models.UploadStateConfirmed,
		FileURL: url,
	}
}

func TestTalentCreateFailureKeepsUploadAttachable(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	uploadID := "0c9e7d2a-4b1f-4e6a-8d3c-5a2b1c0d9e8f"
	f.stageCertificate(uploadID, "http://files/sipodi/talent_certificate/2024/01/up-2.pdf")

	f.repo.createErr = errors.New("connection reset")
	_, err := f.svc.Create(ctx, gtkActor, dto.CreateTalentRequest{TalentType: models.KindTraining, Detail: trainingDetail, UploadID: &uploadID})
	require.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Contains(t, f.uploads.sessions, uploadID)
	assert.Empty(t, f.uploads.attached)

	f.repo.createErr = nil
	resp, err := f.svc.Create(ctx, gtkActor, dto.CreateTalentRequest{TalentType: models.KindTraining, Detail: trainingDetail, UploadID: &uploadID})
	require.NoError(t, err)
	require.NotNil(t, resp.Attachment)
	assert.Equal(t, []string{uploadID}, f.uploads.attached)
}

func TestTalentEditReplacesAttachment(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	first := "5d4c3b2a-1f0e-4d9c-8b7a-6f5e4d3c2b1a"
	second := "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	f.stageCertificate(first, "http://files/sipodi/talent_certificate/2024/01/first.pdf")
	f.stageCertificate(second, "http://files/sipodi/talent_certificate/2024/01/second.pdf")

	created, err := f.svc.Create(ctx, gtkActor, dto.CreateTalentRequest{TalentType: models.KindTraining, Detail: trainingDetail, UploadID: &first})
	require.NoError(t, err)

	edited, err := f.svc.Edit(ctx, gtkActor, created.ID, dto.UpdateTalentRequest{UploadID: &second})
	require.NoError(t, err)
	assert.Equal(t, "http://files/sipodi/talent_certificate/2024/01/second.pdf", edited.Attachment.URL)
	assert.Equal(t, []string{first, second}, f.uploads.attached)
	assert.Equal(t, []string{"http://files/sipodi/talent_certificate/2024/01/first.pdf"}, f.uploads.replaced)
}

func TestTalentEditLostRaceRestoresUpload(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	created := f.create(t, gtkActor)
	uploadID := "3e2d1c0b-9a8f-4e7d-8c6b-5a4f3e2d1c0b"
	f.stageCertificate(uploadID, "http://files/sipodi/talent_certificate/2024/01/late.pdf")

	// a reviewer decides between the edit's read and its guarded write
	stored := f.repo.talents[created.ID]
	f.repo.beforeUpdate = func() { stored.Status = models.TalentStatusApproved }

	_, err := f.svc.Edit(ctx, gtkActor, created.ID, dto.UpdateTalentRequest{UploadID: &uploadID})
	require.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Contains(t, f.uploads.sessions, uploadID)
	assert.Empty(t, f.uploads.attached)
}

func TestTalentEditRequiresChanges(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	created := f.create(t, gtkActor)
	before := len(f.events.events)

	_, err := f.svc.Edit(ctx, gtkActor, created.ID, dto.UpdateTalentRequest{})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "detail", appErrors.FromError(err).Details[0].Field)
	assert.Len(t, f.events.events, before)
}

func TestTalentEditAndDeleteGuards(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	created := f.create(t, gtkActor)

	edited, err := f.svc.Edit(ctx, gtkActor, created.ID, dto.UpdateTalentRequest{
		Detail: json.RawMessage(`{"activity_name":"Workshop B","organizer":"Dinas","start_date":"2024-02-01","duration_days":2}`),
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindTraining, edited.TalentType)
	assert.Equal(t, "Workshop B", edited.Detail.(models.TrainingDetail).ActivityName)

	_, err = f.svc.Edit(ctx, gtkActor, created.ID, dto.UpdateTalentRequest{
		Detail: json.RawMessage(`{"interest_name":"Catur","description":"x"}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	err = f.svc.Delete(ctx, otherGTK, created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	foreign := f.create(t, otherGTK)
	err = f.svc.Delete(ctx, superAdmin, foreign.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.Approve(ctx, superAdmin, created.ID)
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, gtkActor, created.ID, dto.UpdateTalentRequest{Detail: trainingDetail})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	err = f.svc.Delete(ctx, gtkActor, created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	err = f.svc.Delete(ctx, otherGTK, foreign.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, otherGTK, foreign.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	history, err := f.events.ListByTalent(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TalentEventDeleted, history[len(history)-1].Type)
}

func TestTalentBatchApprovePartialFailure(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	a := f.create(t, gtkActor)
	b := f.create(t, gtkActor)
	c := f.create(t, gtkActor)

	_, err := f.svc.Reject(ctx, schoolAdmin, b.ID, "Dokumen tidak valid")
	require.NoError(t, err)

	result, err := f.svc.BatchApprove(ctx, schoolAdmin, dto.BatchApproveRequest{IDs: []string{a.ID, b.ID, c.ID, "missing", a.ID}})
	require.NoError(t, err)
	require.NotNil(t, result.ApprovedCount)
	assert.Equal(t, 2, *result.ApprovedCount)
	assert.Nil(t, result.RejectedCount)
	assert.Equal(t, 3, result.FailedCount)

	reasons := map[string]string{}
	for _, item := range result.FailedIDs {
		reasons[item.ID] = item.Reason
	}
	assert.Equal(t, "talent already decided", reasons[b.ID])
	assert.Equal(t, "talent not found", reasons["missing"])
	assert.Equal(t, "talent already decided", reasons[a.ID])

	got, err := f.svc.Get(ctx, schoolAdmin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TalentStatusRejected, got.Status)
}

func TestTalentBatchRejectValidatesReasonUpFront(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	a := f.create(t, gtkActor)

	_, err := f.svc.BatchReject(ctx, schoolAdmin, dto.BatchRejectRequest{IDs: []string{a.ID}, RejectionReason: " "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.BatchApprove(ctx, schoolAdmin, dto.BatchApproveRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	got, err := f.svc.Get(ctx, gtkActor, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TalentStatusPending, got.Status)

	foreign := f.create(t, otherGTK)
	result, err := f.svc.BatchReject(ctx, schoolAdmin, dto.BatchRejectRequest{IDs: []string{a.ID, foreign.ID}, RejectionReason: "Tidak sesuai"})
	require.NoError(t, err)
	assert.Equal(t, 1, *result.RejectedCount)
	require.Len(t, result.FailedIDs, 1)
	assert.Equal(t, foreign.ID, result.FailedIDs[0].ID)
}

func TestTalentListIsRoleScoped(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	f.create(t, gtkActor)
	f.create(t, otherGTK)

	items, page, err := f.svc.List(ctx, schoolAdmin, models.TalentFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "school-1", *f.repo.lastFilter.SchoolID)
	assert.Equal(t, 20, page.PageSize)

	items, _, err = f.svc.List(ctx, otherGTK, models.TalentFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "gtk-2", items[0].Submitter.ID)

	items, _, err = f.svc.List(ctx, superAdmin, models.TalentFilter{PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 100, f.repo.lastFilter.PageSize)

	mine, _, err := f.svc.ListMine(ctx, gtkActor, models.TalentFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "gtk-1", mine[0].Submitter.ID)
}

func TestTalentGetHidesForeignRecords(t *testing.T) {
	f := newTalentFixture()
	created := f.create(t, gtkActor)

	_, err := f.svc.Get(context.Background(), foreignAdmin, created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = f.svc.History(context.Background(), otherGTK, created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	history, err := f.svc.History(context.Background(), schoolAdmin, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.TalentEventCreated, history[0].Type)
}

func TestTalentCreatePersistFailureIsInternal(t *testing.T) {
	f := newTalentFixture()
	f.repo.createErr = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), gtkActor, dto.CreateTalentRequest{TalentType: models.KindTraining, Detail: trainingDetail})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.events.events)
}

func TestTalentBatchFallsBackWhenPrefetchFails(t *testing.T) {
	f := newTalentFixture()
	ctx := context.Background()
	a := f.create(t, gtkActor)
	f.repo.findErr = errors.New("connection reset")

	result, err := f.svc.BatchApprove(ctx, schoolAdmin, dto.BatchApproveRequest{IDs: []string{a.ID, "missing"}})
	require.NoError(t, err)
	assert.Equal(t, 1, *result.ApprovedCount)
	require.Len(t, result.FailedIDs, 1)
	assert.Equal(t, "talent not found", result.FailedIDs[0].Reason)
}

func TestTalentFilterFromQuery(t *testing.T) {
	filter, err := TalentFilterFromQuery(dto.TalentQuery{TalentType: "minat_bakat", Status: "approved", SchoolID: "school-1", Search: "  ani ", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, models.KindInterest, *filter.Kind)
	assert.Equal(t, models.TalentStatusApproved, *filter.Status)
	assert.Equal(t, "school-1", *filter.SchoolID)
	assert.Equal(t, "ani", filter.Search)
	assert.Equal(t, 2, filter.Page)

	_, err = TalentFilterFromQuery(dto.TalentQuery{TalentType: "juara"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = TalentFilterFromQuery(dto.TalentQuery{Status: "draft"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
