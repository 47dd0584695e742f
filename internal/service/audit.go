package service

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/internal/models"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// writeAudit stamps entry with the actor and request metadata and stores it. Failures are
// logged only.
func writeAudit(ctx context.Context, recorder auditRecorder, logger *zap.Logger, actor models.Actor, meta RequestMeta, entry *models.AuditLog) {
	if recorder == nil {
		return
	}
	entry.Stamp(actor.UserID, meta.IP, meta.UserAgent)
	if err := recorder.Create(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", string(entry.Action)), zap.String("resource", entry.Resource), zap.Error(err))
	}
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == pqForeignKeyViolation
}
