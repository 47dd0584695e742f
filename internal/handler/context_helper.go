package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/sipodi-api/internal/middleware"
	"github.com/noah-isme/sipodi-api/internal/models"
	"github.com/noah-isme/sipodi-api/internal/service"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
	"github.com/noah-isme/sipodi-api/pkg/response"
)

// actorFromContext returns the authenticated caller. ok is false when JWT did not run.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	if _, ok := middleware.Claims(c); !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return middleware.Actor(c), true
}

// pathID reads a UUID path parameter. Malformed ids are answered with a 400 before they
// reach a uuid column.
func pathID(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		e := appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+name)
		e.Details = []appErrors.FieldError{{Field: name, Message: name + " must be a UUID"}}
		response.Error(c, e)
		return "", false
	}
	return raw, true
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
