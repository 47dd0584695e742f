package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
	"github.com/noah-isme/sipodi-api/pkg/response"
)

// RequireRoles lets the request through only for the listed roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions"))
			return
		}
		c.Next()
	}
}

// RequireReviewer admits super admins and school admins.
func RequireReviewer() gin.HandlerFunc {
	return RequireRoles(models.RoleSuperAdmin, models.RoleAdminSekolah)
}
