package service

import (
	"context"

	"github.com/noah-isme/sipodi-api/pkg/jobs"
)

// Background job types.
const (
	JobDeleteObject       = "storage.delete_object"
	JobCreateNotification = "notification.create"
)

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// RegisterJobHandlers binds the background handlers to mux, counting each run.
func RegisterJobHandlers(mux *jobs.Mux, metrics *MetricsService, uploads *UploadService, notifications *NotificationService) {
	mux.Handle(JobDeleteObject, instrumentJob(metrics, JobDeleteObject, uploads.HandleDeleteObject))
	mux.Handle(JobCreateNotification, instrumentJob(metrics, JobCreateNotification, notifications.HandleCreateNotification))
}

func instrumentJob(metrics *MetricsService, jobType string, h jobs.Handler) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		err := h(ctx, job)
		metrics.RecordJob(jobType, err)
		return err
	}
}
