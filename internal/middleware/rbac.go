package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campusevents/event-api/internal/models"
	appErrors "github.com/campusevents/event-api/pkg/errors"
	"github.com/campusevents/event-api/pkg/response"
)

// RequireRoles admits callers holding any of roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := Principal(c)
		if principal == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !models.AuthorizeAny(principal, roles...) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
