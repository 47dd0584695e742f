package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/internal/handler"
	"github.com/noah-isme/sipodi-api/internal/middleware"
	"github.com/noah-isme/sipodi-api/internal/models"
	"github.com/noah-isme/sipodi-api/pkg/config"
	"github.com/noah-isme/sipodi-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sipodi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sipodi-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler mounted by the router.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Schools       *handler.SchoolHandler
	Talents       *handler.TalentHandler
	Uploads       *handler.UploadHandler
	Notifications *handler.NotificationHandler
	Dashboard     *handler.DashboardHandler
	Exports       *handler.ExportHandler
	Metrics       *handler.MetricsHandler
}

// Options configures the engine.
type Options struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string

	Tokens   middleware.TokenValidator
	Audit    middleware.AuditRecorder
	Observer middleware.HTTPObserver
	Logger   *zap.Logger
}

// New builds the gin engine with the global middleware chain and every route.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Observer, "/health", "/ready", "/metrics"))
	r.Use(middleware.ResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	jwt := middleware.JWT(opts.Tokens)
	reviewer := middleware.RequireReviewer()
	superAdmin := middleware.RequireRoles(models.RoleSuperAdmin)
	decision := middleware.Audit(opts.Audit, opts.Logger, models.AuditActionTalentDecide, "talents")

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", h.Auth.Logout)
		auth.POST("/logout-all", jwt, h.Auth.LogoutAll)
	}

	secured := api.Group("", jwt)

	me := secured.Group("/me")
	{
		me.GET("", h.Users.Me)
		me.PATCH("", h.Users.UpdateMe)
		me.PATCH("/password", h.Auth.ChangePassword)
		me.GET("/talents", h.Talents.ListMine)
	}

	users := secured.Group("/users", reviewer)
	{
		users.GET("", h.Users.List)
		users.POST("", h.Users.Create)
		users.GET("/:id", h.Users.Get)
		users.PUT("/:id", h.Users.Update)
		users.PATCH("/:id/activate", h.Users.Activate)
		users.PATCH("/:id/deactivate", h.Users.Deactivate)
		users.DELETE("/:id", superAdmin, h.Users.Delete)
	}

	schools := secured.Group("/schools")
	{
		schools.GET("", h.Schools.List)
		schools.GET("/:id", h.Schools.Get)
		schools.GET("/:id/users", reviewer, h.Schools.Users)
		schools.POST("", superAdmin, h.Schools.Create)
		schools.PUT("/:id", superAdmin, h.Schools.Update)
		schools.DELETE("/:id", superAdmin, h.Schools.Delete)
	}

	talents := secured.Group("/talents")
	{
		talents.GET("", h.Talents.List)
		talents.POST("", middleware.RequireRoles(models.RoleGTK), h.Talents.Create)
		talents.GET("/:id", h.Talents.Get)
		talents.PUT("/:id", h.Talents.Update)
		talents.DELETE("/:id", h.Talents.Delete)
		talents.GET("/:id/history", h.Talents.History)
	}

	verifications := secured.Group("/verifications/talents", reviewer)
	{
		verifications.POST("/batch/approve", decision, h.Talents.BatchApprove)
		verifications.POST("/batch/reject", decision, h.Talents.BatchReject)
		verifications.POST("/:id/approve", decision, h.Talents.Approve)
		verifications.POST("/:id/reject", decision, h.Talents.Reject)
	}

	uploads := secured.Group("/uploads")
	{
		uploads.POST("/presign", h.Uploads.Presign)
		uploads.POST("/:upload_id/confirm", h.Uploads.Confirm)
		uploads.DELETE("/:upload_id", h.Uploads.Cancel)
	}

	notifications := secured.Group("/notifications")
	{
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread-count", h.Notifications.UnreadCount)
		notifications.PATCH("/read-all", h.Notifications.MarkAllRead)
		notifications.PATCH("/:id/read", h.Notifications.MarkRead)
	}

	dashboard := secured.Group("/dashboard")
	{
		dashboard.GET("/summary", h.Dashboard.Summary)
		dashboard.GET("/schools/statistics", reviewer, h.Dashboard.SchoolStatistics)
		dashboard.GET("/talents/statistics", h.Dashboard.TalentStatistics)
	}

	exports := secured.Group("/exports", reviewer)
	{
		exports.GET("/gtk", h.Exports.GTK)
		exports.GET("/talents", h.Exports.Talents)
		exports.GET("/schools", h.Exports.Schools)
	}

	return r
}
