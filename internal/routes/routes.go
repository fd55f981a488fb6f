package routes

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/campusevents/event-api/internal/handler"
	"github.com/campusevents/event-api/internal/middleware"
	"github.com/campusevents/event-api/internal/models"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Events        *handler.EventHandler
	Requests      *handler.EventRequestHandler
	History       *handler.HistoryHandler
	Registrations *handler.RegistrationHandler
	Metrics       *handler.MetricsHandler
}

// Options configures route registration.
type Options struct {
	APIPrefix  string
	Tokens     tokenValidator
	Audit      auditWriter
	Logger     *zap.Logger
	EnableDocs bool
}

// Register mounts ops endpoints at the root and the API under opts.APIPrefix.
func Register(r *gin.Engine, h Handlers, opts Options) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	requireAuth := middleware.JWT(opts.Tokens)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	committeeOnly := middleware.RequireRoles(models.RoleCommittee)
	reviewers := middleware.RequireRoles(models.RoleAdmin, models.RoleCommittee)

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.GET("/me", requireAuth, h.Auth.Me)

	users := api.Group("/users", requireAuth)
	users.GET("", adminOnly, h.Users.List)
	users.GET("/profile", h.Users.Profile)

	events := api.Group("/events")
	events.GET("", h.Events.ListApproved)
	events.GET("/all", middleware.OptionalJWT(opts.Tokens), h.Events.ListAll)
	events.GET("/:id", middleware.OptionalJWT(opts.Tokens), h.Events.Get)
	events.POST("", requireAuth, adminOnly, h.Events.Create)
	events.PUT("/:id", requireAuth, adminOnly, h.Events.Update)
	events.DELETE("/:id", requireAuth, adminOnly, h.Events.Delete)

	requests := api.Group("/event-requests", requireAuth)
	requests.POST("", committeeOnly, h.Requests.Submit)
	requests.GET("", reviewers, h.Requests.List)
	requests.POST("/changes", reviewers, h.Requests.Changes)
	requests.GET("/history", reviewers, h.History.List)
	requests.GET("/history/export", reviewers, exportAudit(opts), h.History.Export)
	requests.GET("/:id", reviewers, h.Requests.Get)
	requests.PUT("/:id", committeeOnly, h.Requests.Edit)
	requests.PUT("/:id/approve", adminOnly, h.Requests.Approve)
	requests.PUT("/:id/reject", adminOnly, h.Requests.Reject)

	registrations := api.Group("/registrations", requireAuth)
	registrations.POST("", h.Registrations.Register)
	registrations.GET("/me", h.Registrations.Mine)

	api.GET("/metrics/snapshot", requireAuth, adminOnly, h.Metrics.Snapshot)
}

func exportAudit(opts Options) gin.HandlerFunc {
	if opts.Audit == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.Audit(opts.Audit, opts.Logger, models.AuditActionHistoryExport, "event_request_history")
}
