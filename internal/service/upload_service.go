package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	"github.com/noah-isme/sipodi-api/internal/repository"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
	"github.com/noah-isme/sipodi-api/pkg/jobs"
	"github.com/noah-isme/sipodi-api/pkg/storage"
)

type uploadSessionStore interface {
	Save(ctx context.Context, session *models.UploadSession, ttl time.Duration, orphanAt time.Time) error
	Get(ctx context.Context, id string) (*models.UploadSession, error)
	Release(ctx context.Context, id string) (bool, error)
	Untrack(ctx context.Context, objectKey string) error
	DueOrphans(ctx context.Context, now time.Time, limit int64) ([]string, error)
}

type objectStore interface {
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (*storage.PresignedPut, error)
	Head(ctx context.Context, key string) (*storage.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	ObjectURL(key string) string
	KeyFromURL(rawURL string) (string, bool)
}

type uploadMetrics interface {
	RecordUpload(purpose, step string, ok bool)
}

// UploadServiceConfig tunes session lifetimes.
type UploadServiceConfig struct {
	// PresignExpiry bounds how long the write URL stays valid.
	PresignExpiry time.Duration
	// AttachWindow is how long a session survives after presign or confirm before its object
	// is considered orphaned.
	AttachWindow time.Duration
	SweepBatch   int64
}

// UploadService implements the presign, confirm and attach steps of direct uploads.
type UploadService struct {
	sessions  uploadSessionStore
	storage   objectStore
	queue     jobEnqueuer
	metrics   uploadMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       UploadServiceConfig
	now       func() time.Time
}

// NewUploadService constructs the service. A nil queue deletes objects inline.
func NewUploadService(sessions uploadSessionStore, store objectStore, queue jobEnqueuer, metrics uploadMetrics, validate *validator.Validate, logger *zap.Logger, cfg UploadServiceConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = storage.DefaultPresignExpiry
	}
	if cfg.AttachWindow <= 0 {
		cfg.AttachWindow = 24 * time.Hour
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	return &UploadService{
		sessions:  sessions,
		storage:   store,
		queue:     queue,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Presign validates the declared file against the purpose policy and issues a write URL.
func (s *UploadService) Presign(ctx context.Context, actor models.Actor, req dto.PresignRequest) (*dto.PresignResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid upload payload")
	}

	purpose := models.UploadPurpose(req.UploadType)
	policy, ok := purpose.Policy()
	if !ok {
		return nil, appErrors.Validation("invalid upload payload", appErrors.FieldError{
			Field:   "upload_type",
			Message: fmt.Sprintf("upload_type must be one of %s, %s", models.UploadProfilePhoto, models.UploadTalentCertificate),
		})
	}

	var details []appErrors.FieldError
	if req.Size > policy.MaxSize {
		details = append(details, appErrors.FieldError{Field: "size", Message: fmt.Sprintf("size exceeds %d bytes", policy.MaxSize)})
	}
	if !policy.Allows(req.ContentType) {
		details = append(details, appErrors.FieldError{Field: "content_type", Message: "content_type must be one of " + strings.Join(policy.AllowedTypes, ", ")})
	}
	if len(details) > 0 {
		s.metrics.RecordUpload(string(purpose), "presign", false)
		return nil, appErrors.Validation("invalid upload payload", details...)
	}

	now := s.now()
	contentType := models.NormalizeContentType(req.ContentType)
	session := &models.UploadSession{
		ID:           uuid.NewString(),
		OwnerID:      actor.UserID,
		Purpose:      purpose,
		Filename:     req.Filename,
		DeclaredSize: req.Size,
		ContentType:  contentType,
		State:        models.UploadStatePending,
		CreatedAt:    now,
	}
	session.ObjectKey = models.ObjectKey(purpose, session.ID, req.Filename, contentType, now)

	presigned, err := s.storage.PresignPut(ctx, session.ObjectKey, contentType, s.cfg.PresignExpiry)
	if err != nil {
		s.metrics.RecordUpload(string(purpose), "presign", false)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to presign upload")
	}
	session.ExpiresAt = presigned.ExpiresAt

	lifetime := s.cfg.PresignExpiry + s.cfg.AttachWindow
	if err := s.sessions.Save(ctx, session, lifetime, now.Add(lifetime)); err != nil {
		s.metrics.RecordUpload(string(purpose), "presign", false)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload session")
	}
	s.metrics.RecordUpload(string(purpose), "presign", true)

	return &dto.PresignResponse{
		UploadID:     session.ID,
		PresignedURL: presigned.URL,
		Method:       presigned.Method,
		Headers:      presigned.Headers,
		ExpiresIn:    int(s.cfg.PresignExpiry.Seconds()),
		ExpiresAt:    presigned.ExpiresAt,
		MaxSize:      policy.MaxSize,
		AllowedTypes: policy.AllowedTypes,
	}, nil
}

// Confirm verifies the object exists in storage and satisfies the policy. Confirming an
// already confirmed session returns the same result.
func (s *UploadService) Confirm(ctx context.Context, actor models.Actor, uploadID string) (*dto.ConfirmUploadResponse, error) {
	session, err := s.ownedSession(ctx, actor, uploadID)
	if err != nil {
		return nil, err
	}
	if session.State == models.UploadStateConfirmed {
		return confirmResponse(session), nil
	}

	info, err := s.storage.Head(ctx, session.ObjectKey)
	if err != nil {
		s.metrics.RecordUpload(string(session.Purpose), "confirm", false)
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrFileNotUploaded, "file has not been uploaded yet")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect uploaded object")
	}

	policy, _ := session.Purpose.Policy()
	var details []appErrors.FieldError
	if info.Size > policy.MaxSize {
		details = append(details, appErrors.FieldError{Field: "size", Message: fmt.Sprintf("uploaded file exceeds %d bytes", policy.MaxSize)})
	}
	if info.ContentType != "" && models.NormalizeContentType(info.ContentType) != session.ContentType {
		details = append(details, appErrors.FieldError{Field: "content_type", Message: "uploaded content type does not match " + session.ContentType})
	}
	if len(details) > 0 {
		s.metrics.RecordUpload(string(session.Purpose), "confirm", false)
		s.discard(ctx, session)
		return nil, appErrors.Validation("uploaded file does not match the declared upload", details...)
	}

	now := s.now()
	session.State = models.UploadStateConfirmed
	session.FileURL = s.storage.ObjectURL(session.ObjectKey)
	session.FileSize = info.Size
	session.ConfirmedAt = &now
	if err := s.sessions.Save(ctx, session, s.cfg.AttachWindow, now.Add(s.cfg.AttachWindow)); err != nil {
		s.metrics.RecordUpload(string(session.Purpose), "confirm", false)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm upload session")
	}
	s.metrics.RecordUpload(string(session.Purpose), "confirm", true)
	return confirmResponse(session), nil
}

// Cancel drops the session and schedules its object for deletion.
func (s *UploadService) Cancel(ctx context.Context, actor models.Actor, uploadID string) error {
	session, err := s.ownedSession(ctx, actor, uploadID)
	if err != nil {
		return err
	}
	s.discard(ctx, session)
	s.metrics.RecordUpload(string(session.Purpose), "cancel", true)
	return nil
}

// Resolve claims a confirmed upload of purpose owned by actor so it can be attached to an
// entity. The claim removes the session, so concurrent attaches of one upload cannot both
// succeed. The caller must follow up with Attached once its write commits, or with Restore
// when the write fails so the upload stays attachable.
func (s *UploadService) Resolve(ctx context.Context, actor models.Actor, uploadID string, purpose models.UploadPurpose) (*models.UploadSession, error) {
	invalid := func(msg string) error {
		return appErrors.Validation("invalid upload reference", appErrors.FieldError{Field: "upload_id", Message: msg})
	}

	session, err := s.sessions.Get(ctx, uploadID)
	if err != nil {
		if errors.Is(err, repository.ErrUploadSessionNotFound) {
			return nil, invalid("upload not found or expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upload session")
	}
	if session.OwnerID != actor.UserID {
		return nil, invalid("upload not found or expired")
	}
	if session.Purpose != purpose {
		return nil, invalid(fmt.Sprintf("upload is not a %s upload", purpose))
	}
	if session.State != models.UploadStateConfirmed {
		return nil, invalid("upload has not been confirmed")
	}

	released, err := s.sessions.Release(ctx, uploadID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim upload session")
	}
	if !released {
		return nil, invalid("upload already attached")
	}
	return session, nil
}

// Attached finalizes a claim after the owning record was written. The object leaves the
// orphan index, and the object previously referenced by replacedURL, if any, is scheduled
// for deletion.
func (s *UploadService) Attached(ctx context.Context, session *models.UploadSession, replacedURL *string) {
	if err := s.sessions.Untrack(ctx, session.ObjectKey); err != nil {
		s.logger.Warn("failed to untrack attached upload", zap.String("object_key", session.ObjectKey), zap.Error(err))
	}
	s.metrics.RecordUpload(string(session.Purpose), "attach", true)

	if replacedURL == nil || *replacedURL == "" || *replacedURL == session.FileURL {
		return
	}
	key, ok := s.storage.KeyFromURL(*replacedURL)
	if !ok {
		s.logger.Warn("replaced attachment is outside the bucket", zap.String("url", *replacedURL))
		return
	}
	s.scheduleDelete(ctx, key)
}

// Restore puts back a session claimed by Resolve whose record write failed. The orphan
// deadline is unchanged.
func (s *UploadService) Restore(ctx context.Context, session *models.UploadSession) {
	orphanAt := s.now().Add(s.cfg.AttachWindow)
	if session.ConfirmedAt != nil {
		orphanAt = session.ConfirmedAt.Add(s.cfg.AttachWindow)
	}
	ttl := orphanAt.Sub(s.now())
	if ttl < time.Minute {
		ttl = time.Minute
	}
	if err := s.sessions.Save(ctx, session, ttl, orphanAt); err != nil {
		s.logger.Warn("failed to restore upload session", zap.String("upload_id", session.ID), zap.Error(err))
	}
	s.metrics.RecordUpload(string(session.Purpose), "attach", false)
}

// SweepOrphans schedules deletion of objects whose sessions lapsed without being attached.
func (s *UploadService) SweepOrphans(ctx context.Context) (int, error) {
	keys, err := s.sessions.DueOrphans(ctx, s.now(), s.cfg.SweepBatch)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		s.scheduleDelete(ctx, key)
	}
	return len(keys), nil
}

// RunSweeper calls SweepOrphans every interval until ctx is done.
func (s *UploadService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepOrphans(ctx)
			if err != nil {
				s.logger.Warn("orphan sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("scheduled orphaned uploads for deletion", zap.Int("count", n))
			}
		}
	}
}

// HandleDeleteObject is the job handler for JobDeleteObject.
func (s *UploadService) HandleDeleteObject(ctx context.Context, job jobs.Job) error {
	key, ok := job.Payload.(string)
	if !ok || key == "" {
		return fmt.Errorf("delete object job %s: invalid payload %T", job.ID, job.Payload)
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return err
	}
	return s.sessions.Untrack(ctx, key)
}

func (s *UploadService) ownedSession(ctx context.Context, actor models.Actor, uploadID string) (*models.UploadSession, error) {
	session, err := s.sessions.Get(ctx, uploadID)
	if err != nil {
		if errors.Is(err, repository.ErrUploadSessionNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "upload session not found or expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upload session")
	}
	if session.OwnerID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "upload session not found or expired")
	}
	return session, nil
}

func (s *UploadService) discard(ctx context.Context, session *models.UploadSession) {
	if _, err := s.sessions.Release(ctx, session.ID); err != nil {
		s.logger.Warn("failed to release upload session", zap.String("upload_id", session.ID), zap.Error(err))
	}
	s.scheduleDelete(ctx, session.ObjectKey)
}

// scheduleDelete hands the object to the job queue. Keys stay in the orphan index until the
// delete succeeds, so a dropped job is picked up by the next sweep.
func (s *UploadService) scheduleDelete(ctx context.Context, key string) {
	if s.queue == nil {
		if err := s.HandleDeleteObject(ctx, jobs.Job{ID: key, Type: JobDeleteObject, Payload: key}); err != nil {
			s.logger.Warn("failed to delete object", zap.String("object_key", key), zap.Error(err))
		}
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobDeleteObject, Payload: key}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue object deletion", zap.String("object_key", key), zap.Error(err))
	}
}

func confirmResponse(session *models.UploadSession) *dto.ConfirmUploadResponse {
	return &dto.ConfirmUploadResponse{
		UploadID:    session.ID,
		FileURL:     session.FileURL,
		Filename:    session.Filename,
		FileSize:    session.FileSize,
		ContentType: session.ContentType,
	}
}
