package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

type talentRepository interface {
	Create(ctx context.Context, talent *models.Talent) error
	GetByID(ctx context.Context, id string) (*models.Talent, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Talent, error)
	List(ctx context.Context, filter models.TalentFilter) ([]models.Talent, int, error)
	UpdatePending(ctx context.Context, talent *models.Talent) error
	DeletePending(ctx context.Context, id, userID string) error
	ApplyDecision(ctx context.Context, id string, d models.Decision) error
}

type talentEventRepository interface {
	Append(ctx context.Context, event *models.TalentEvent) error
	ListByTalent(ctx context.Context, talentID string) ([]models.TalentEvent, error)
}

type uploadResolver interface {
	Resolve(ctx context.Context, actor models.Actor, uploadID string, purpose models.UploadPurpose) (*models.UploadSession, error)
	Attached(ctx context.Context, session *models.UploadSession, replacedURL *string)
	Restore(ctx context.Context, session *models.UploadSession)
}

type notifier interface {
	Notify(ctx context.Context, n *models.Notification)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

type decisionMetrics interface {
	RecordTalentDecision(outcome string)
}

// TalentServiceParams groups constructor dependencies.
type TalentServiceParams struct {
	Repo      talentRepository
	Events    talentEventRepository
	Uploads   uploadResolver
	Notifier  notifier
	Cache     cacheInvalidator
	Metrics   decisionMetrics
	Validator *validator.Validate
	Logger    *zap.Logger
}

// TalentService owns the submission lifecycle: create and edit by the submitter while
// pending, then a single terminal decision by a reviewer.
type TalentService struct {
	repo      talentRepository
	events    talentEventRepository
	uploads   uploadResolver
	notifier  notifier
	cache     cacheInvalidator
	metrics   decisionMetrics
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTalentService constructs the service.
func NewTalentService(params TalentServiceParams) *TalentService {
	svc := &TalentService{
		repo:      params.Repo,
		events:    params.Events,
		uploads:   params.Uploads,
		notifier:  params.Notifier,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: params.Validator,
		logger:    params.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if svc.validator == nil {
		svc.validator = NewValidator()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.metrics == nil {
		svc.metrics = (*MetricsService)(nil)
	}
	return svc
}

func alreadyDecided() error {
	return appErrors.Clone(appErrors.ErrInvalidState, "talent already decided")
}

// Create stores a new pending submission for the actor.
func (s *TalentService) Create(ctx context.Context, actor models.Actor, req dto.CreateTalentRequest) (*dto.TalentResponse, error) {
	if actor.Role != models.RoleGTK {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only GTK users can submit talents")
	}
	if !req.TalentType.Valid() {
		return nil, appErrors.Validation("invalid talent payload", appErrors.FieldError{Field: "talent_type", Message: "talent_type must be one of peserta_pelatihan, pembimbing_lomba, peserta_lomba, minat_bakat"})
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid talent payload")
	}
	detail, err := models.DecodeTalentDetail(req.TalentType, req.Detail)
	if err != nil {
		return nil, err
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode talent detail")
	}

	talent := &models.Talent{
		ID:         uuid.NewString(),
		UserID:     actor.UserID,
		Kind:       req.TalentType,
		DetailJSON: detailJSON,
	}
	var claimed *models.UploadSession
	if req.UploadID != nil && *req.UploadID != "" {
		if claimed, err = s.attach(ctx, actor, talent, *req.UploadID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, talent); err != nil {
		s.unclaim(ctx, claimed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create talent")
	}
	s.settle(ctx, claimed, nil)
	s.record(ctx, talent.ID, actor.UserID, models.TalentEventCreated, models.TalentStatusPending, nil)
	s.invalidateDashboard(ctx)

	return s.view(ctx, talent)
}

// Edit replaces the detail and/or attachment of a pending submission owned by the actor. The
// kind is fixed, so the new detail is decoded against the stored kind.
func (s *TalentService) Edit(ctx context.Context, actor models.Actor, id string, req dto.UpdateTalentRequest) (*dto.TalentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid talent payload")
	}
	replacing := req.UploadID != nil && *req.UploadID != ""
	if len(req.Detail) == 0 && !replacing {
		return nil, appErrors.Validation("invalid talent payload", appErrors.FieldError{Field: "detail", Message: "detail or upload_id is required"})
	}
	talent, err := s.mutable(ctx, actor, id, "edit")
	if err != nil {
		return nil, err
	}

	if len(req.Detail) > 0 {
		detail, err := models.DecodeTalentDetail(talent.Kind, req.Detail)
		if err != nil {
			return nil, err
		}
		if talent.DetailJSON, err = json.Marshal(detail); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode talent detail")
		}
	}
	previous := talent.AttachmentURL
	var claimed *models.UploadSession
	if replacing {
		if claimed, err = s.attach(ctx, actor, talent, *req.UploadID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdatePending(ctx, talent); err != nil {
		s.unclaim(ctx, claimed)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, alreadyDecided()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update talent")
	}
	s.settle(ctx, claimed, previous)
	s.record(ctx, talent.ID, actor.UserID, models.TalentEventEdited, models.TalentStatusPending, nil)

	return s.view(ctx, talent)
}

// Delete removes a pending submission owned by the actor. Its event history is kept.
func (s *TalentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	talent, err := s.mutable(ctx, actor, id, "delete")
	if err != nil {
		return err
	}
	if err := s.repo.DeletePending(ctx, talent.ID, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return alreadyDecided()
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete talent")
	}
	s.record(ctx, talent.ID, actor.UserID, models.TalentEventDeleted, talent.Status, nil)
	s.invalidateDashboard(ctx)
	return nil
}

// Get returns a talent visible to the actor. Invisible talents are reported as not found.
func (s *TalentService) Get(ctx context.Context, actor models.Actor, id string) (*dto.TalentResponse, error) {
	talent, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toTalentResponse(talent)
}

// List returns talents within the actor's scope.
func (s *TalentService) List(ctx context.Context, actor models.Actor, filter models.TalentFilter) ([]dto.TalentResponse, *models.Pagination, error) {
	filter.Page, filter.PageSize = normalizePaging(filter.Page, filter.PageSize)
	filter = models.ScopeTalentFilter(actor, filter)

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list talents")
	}
	items := make([]dto.TalentResponse, 0, len(rows))
	for i := range rows {
		resp, err := toTalentResponse(&rows[i])
		if err != nil {
			return nil, nil, err
		}
		items = append(items, *resp)
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// ListMine returns the actor's own submissions regardless of role.
func (s *TalentService) ListMine(ctx context.Context, actor models.Actor, filter models.TalentFilter) ([]dto.TalentResponse, *models.Pagination, error) {
	uid := actor.UserID
	filter.UserID = &uid
	filter.SchoolID = nil
	return s.List(ctx, models.Actor{UserID: actor.UserID, Role: models.RoleGTK}, filter)
}

// History returns the lifecycle events of a visible talent, oldest first.
func (s *TalentService) History(ctx context.Context, actor models.Actor, id string) ([]models.TalentEvent, error) {
	if _, err := s.visible(ctx, actor, id); err != nil {
		return nil, err
	}
	events, err := s.events.ListByTalent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load talent history")
	}
	if events == nil {
		events = []models.TalentEvent{}
	}
	return events, nil
}

// Approve moves a pending talent to approved.
func (s *TalentService) Approve(ctx context.Context, actor models.Actor, id string) (*dto.TalentResponse, error) {
	talent, err := s.decide(ctx, actor, id, models.Approval(actor.UserID, s.now()))
	if err != nil {
		return nil, err
	}
	return s.view(ctx, talent)
}

// Reject moves a pending talent to rejected. A blank reason fails before any state is read.
func (s *TalentService) Reject(ctx context.Context, actor models.Actor, id string, reason string) (*dto.TalentResponse, error) {
	d := models.Rejection(actor.UserID, reason, s.now())
	if err := d.Validate(); err != nil {
		return nil, reasonRequired()
	}
	talent, err := s.decide(ctx, actor, id, d)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, talent)
}

// BatchApprove approves each id independently and reports per-id failures.
func (s *TalentService) BatchApprove(ctx context.Context, actor models.Actor, req dto.BatchApproveRequest) (*dto.BatchResult, error) {
	if !actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers can decide talents")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid batch payload")
	}
	approved, failed := s.batch(ctx, actor, req.IDs, func() models.Decision {
		return models.Approval(actor.UserID, s.now())
	})
	return &dto.BatchResult{ApprovedCount: &approved, FailedCount: len(failed), FailedIDs: failed}, nil
}

// BatchReject rejects each id with one shared reason and reports per-id failures.
func (s *TalentService) BatchReject(ctx context.Context, actor models.Actor, req dto.BatchRejectRequest) (*dto.BatchResult, error) {
	if !actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers can decide talents")
	}
	if err := models.Rejection(actor.UserID, req.RejectionReason, s.now()).Validate(); err != nil {
		return nil, reasonRequired()
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid batch payload")
	}
	rejected, failed := s.batch(ctx, actor, req.IDs, func() models.Decision {
		return models.Rejection(actor.UserID, req.RejectionReason, s.now())
	})
	return &dto.BatchResult{RejectedCount: &rejected, FailedCount: len(failed), FailedIDs: failed}, nil
}

// batch evaluates every id against its current stored state; duplicates are attempted again
// and fail as already decided.
func (s *TalentService) batch(ctx context.Context, actor models.Actor, ids []string, decision func() models.Decision) (int, []dto.FailedItem) {
	loaded, prefetchErr := s.repo.FindByIDs(ctx, ids)
	if prefetchErr != nil {
		s.logger.Warn("batch prefetch failed, loading talents one by one", zap.Error(prefetchErr))
		loaded = nil
	}

	succeeded := 0
	failed := make([]dto.FailedItem, 0)
	for _, id := range ids {
		var err error
		if loaded == nil {
			_, err = s.decide(ctx, actor, id, decision())
		} else if talent, ok := loaded[id]; ok {
			_, err = s.apply(ctx, actor, talent, decision())
		} else {
			err = appErrors.Clone(appErrors.ErrNotFound, "talent not found")
		}
		if err != nil {
			appErr := appErrors.FromError(err)
			if appErr.Code == appErrors.ErrInternal.Code {
				s.logger.Error("batch decision failed", zap.String("talent_id", id), zap.Error(err))
			}
			failed = append(failed, dto.FailedItem{ID: id, Reason: appErr.Message})
			continue
		}
		succeeded++
	}
	return succeeded, failed
}

func (s *TalentService) decide(ctx context.Context, actor models.Actor, id string, d models.Decision) (*models.Talent, error) {
	if !actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers can decide talents")
	}
	talent, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, talent, d)
}

// apply decides an already loaded talent. On success talent reflects the new state.
func (s *TalentService) apply(ctx context.Context, actor models.Actor, talent *models.Talent, d models.Decision) (*models.Talent, error) {
	if talent.UserID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reviewers cannot decide their own talent")
	}
	if !models.CanReviewTalent(actor, talent) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "talent belongs to another school")
	}

	next, err := models.Decide(talent.Status, d)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotPending):
			return nil, alreadyDecided()
		case errors.Is(err, models.ErrReasonRequired):
			return nil, reasonRequired()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	if err := s.repo.ApplyDecision(ctx, talent.ID, d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, alreadyDecided()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}

	talent.Status = next
	talent.VerifiedBy = &d.ReviewerID
	talent.VerifiedAt = &d.At
	talent.UpdatedAt = d.At
	talent.RejectionReason = nil
	var reason *string
	if next == models.TalentStatusRejected {
		reason = &d.Reason
		talent.RejectionReason = reason
	}

	eventType := models.TalentEventApproved
	notification := &models.Notification{UserID: talent.UserID, TalentID: &talent.ID, Type: models.NotificationTalentApproved, Message: "Talenta Anda telah disetujui"}
	if next == models.TalentStatusRejected {
		eventType = models.TalentEventRejected
		notification.Type = models.NotificationTalentRejected
		notification.Message = "Talenta Anda ditolak. Alasan: " + d.Reason
	}
	s.record(ctx, talent.ID, actor.UserID, eventType, next, reason)
	if s.notifier != nil {
		s.notifier.Notify(ctx, notification)
	}
	s.metrics.RecordTalentDecision(string(next))
	s.invalidateDashboard(ctx)

	s.logger.Info("talent decided",
		zap.String("talent_id", talent.ID),
		zap.String("reviewer_id", actor.UserID),
		zap.String("status", string(next)),
	)
	return talent, nil
}

func (s *TalentService) load(ctx context.Context, id string) (*models.Talent, error) {
	talent, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "talent not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load talent")
	}
	return talent, nil
}

func (s *TalentService) visible(ctx context.Context, actor models.Actor, id string) (*models.Talent, error) {
	talent, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanViewTalent(actor, talent) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "talent not found")
	}
	return talent, nil
}

// mutable loads a talent the actor may edit or delete, distinguishing foreign records from
// decided ones.
func (s *TalentService) mutable(ctx context.Context, actor models.Actor, id, verb string) (*models.Talent, error) {
	talent, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if talent.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the submitter can "+verb+" this talent")
	}
	if !models.CanEditTalent(actor, talent) {
		return nil, alreadyDecided()
	}
	return talent, nil
}

// attach claims a certificate upload and points talent at it. The claim must be settled or
// unclaimed once the row write finishes.
func (s *TalentService) attach(ctx context.Context, actor models.Actor, talent *models.Talent, uploadID string) (*models.UploadSession, error) {
	if s.uploads == nil {
		return nil, appErrors.Validation("invalid upload reference", appErrors.FieldError{Field: "upload_id", Message: "uploads are not available"})
	}
	session, err := s.uploads.Resolve(ctx, actor, uploadID, models.UploadTalentCertificate)
	if err != nil {
		return nil, err
	}
	url := session.FileURL
	id := session.ID
	talent.AttachmentURL = &url
	talent.AttachmentUploadID = &id
	return session, nil
}

func (s *TalentService) settle(ctx context.Context, claimed *models.UploadSession, replacedURL *string) {
	if claimed != nil {
		s.uploads.Attached(ctx, claimed, replacedURL)
	}
}

func (s *TalentService) unclaim(ctx context.Context, claimed *models.UploadSession) {
	if claimed != nil {
		s.uploads.Restore(ctx, claimed)
	}
}

// view reloads the talent for display fields, falling back to the in-memory row.
func (s *TalentService) view(ctx context.Context, talent *models.Talent) (*dto.TalentResponse, error) {
	fresh, err := s.repo.GetByID(ctx, talent.ID)
	if err != nil {
		s.logger.Warn("failed to reload talent", zap.String("talent_id", talent.ID), zap.Error(err))
		fresh = talent
	}
	return toTalentResponse(fresh)
}

func (s *TalentService) record(ctx context.Context, talentID, actorID string, eventType models.TalentEventType, status models.TalentStatus, reason *string) {
	if s.events == nil {
		return
	}
	event := &models.TalentEvent{TalentID: talentID, ActorID: actorID, Type: eventType, Status: status, Reason: reason}
	if err := s.events.Append(ctx, event); err != nil {
		s.logger.Warn("failed to append talent event", zap.String("talent_id", talentID), zap.String("type", string(eventType)), zap.Error(err))
	}
}

func (s *TalentService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, CacheDashboardPrefix+"*")
}

func reasonRequired() error {
	return appErrors.Validation("rejection reason is required", appErrors.FieldError{Field: "rejection_reason", Message: "rejection_reason is required"})
}

func toTalentResponse(t *models.Talent) (*dto.TalentResponse, error) {
	detail, err := t.Detail()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode talent detail")
	}
	resp := dto.NewTalentResponse(t, detail)
	return &resp, nil
}

func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// TalentFilterFromQuery converts list query parameters into a filter. Scope fields are
// overwritten later from the actor.
func TalentFilterFromQuery(q dto.TalentQuery) (models.TalentFilter, error) {
	filter := models.TalentFilter{Search: strings.TrimSpace(q.Search), Page: q.Page, PageSize: q.PageSize}
	if q.TalentType != "" {
		kind := models.TalentKind(q.TalentType)
		if !kind.Valid() {
			return filter, appErrors.Validation("invalid talent filter", appErrors.FieldError{Field: "talent_type", Message: "unknown talent_type"})
		}
		filter.Kind = &kind
	}
	if q.Status != "" {
		status := models.TalentStatus(q.Status)
		if !status.Valid() {
			return filter, appErrors.Validation("invalid talent filter", appErrors.FieldError{Field: "status", Message: "status must be one of pending approved rejected"})
		}
		filter.Status = &status
	}
	if q.SchoolID != "" {
		school := q.SchoolID
		filter.SchoolID = &school
	}
	return filter, nil
}
