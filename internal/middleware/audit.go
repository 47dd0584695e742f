package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/internal/models"
)

// AuditRecorder persists audit rows.
type AuditRecorder interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// Audit records one audit row for every successful request on the route. The :id path
// parameter, when present, becomes the resource id.
func Audit(recorder AuditRecorder, log *zap.Logger, action models.AuditAction, resource string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status >= 400 || recorder == nil {
			return
		}

		entry := &models.AuditLog{Action: action, Resource: resource}
		var actorID string
		if claims, ok := Claims(c); ok {
			actorID = claims.UserID
		}
		entry.Stamp(actorID, c.ClientIP(), c.Request.UserAgent())
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		}
		entry.NewValues, _ = json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		})

		if err := recorder.Create(c.Request.Context(), entry); err != nil {
			log.Warn("failed to record audit log", zap.String("action", string(action)), zap.Error(err))
		}
	}
}
