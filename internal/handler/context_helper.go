package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusevents/event-api/internal/middleware"
	"github.com/campusevents/event-api/internal/models"
)

// principalFromContext is nil for anonymous callers.
func principalFromContext(c *gin.Context) *models.Principal {
	return middleware.Principal(c)
}
