// Package routes assembles the HTTP surface from handlers and middleware.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/handler"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/middleware"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/service"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/config"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/logger"
	corsmiddleware "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/middleware/cors"
	reqidmiddleware "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/middleware/requestid"
)

// Services bundles everything the router needs.
type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Consultations *service.ConsultationService
	Notifications *service.NotificationService
	Metrics       *service.MetricsService
}

// New builds the gin engine with every route registered.
func New(cfg *config.Config, logr *zap.Logger, svcs Services) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svcs.Metrics))

	authHandler := handler.NewAuthHandler(svcs.Auth, svcs.Users)
	userHandler := handler.NewUserHandler(svcs.Users, svcs.Consultations, svcs.Notifications)
	appointmentHandler := handler.NewAppointmentHandler(svcs.Consultations)
	staffHandler := handler.NewStaffHandler(svcs.Consultations)
	metricsHandler := handler.NewMetricsHandler(svcs.Metrics)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/downloads/:token", staffHandler.DownloadExport)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(svcs.Auth))
	{
		authed.GET("/users", userHandler.List)
		authed.GET("/me/appointments", userHandler.MyAppointments)
		authed.GET("/me/notifications", userHandler.MyNotifications)
		authed.POST("/me/notifications/:id/read", userHandler.MarkNotificationRead)

		appointments := authed.Group("/appointments")
		{
			appointments.POST("", appointmentHandler.Book)
			appointments.DELETE("/:id", appointmentHandler.Cancel)
			appointments.POST("/:id/complete",
				middleware.RequireRoles(models.RoleProfessor, models.RoleCounselor),
				appointmentHandler.Complete)
			appointments.PUT("/:id/priority",
				middleware.RequireRoles(models.RoleProfessor, models.RoleCounselor),
				appointmentHandler.SetPriority)
		}

		staff := authed.Group("/staff/:id")
		{
			staff.GET("/queue", staffHandler.QueueStatus)
			staff.POST("/queue/next",
				middleware.RequireRoles(models.RoleProfessor, models.RoleCounselor),
				staffHandler.StartNext)
			staff.GET("/slots", staffHandler.ListSlots)
			staff.GET("/slots/available", staffHandler.ListAvailableSlots)
			staff.GET("/slots/export", staffHandler.ExportSchedule)
			staff.POST("/slots",
				middleware.RequireRoles(models.RoleProfessor, models.RoleCounselor),
				staffHandler.AddSlot)
			staff.DELETE("/slots",
				middleware.RequireRoles(models.RoleProfessor, models.RoleCounselor),
				staffHandler.RemoveSlot)
			staff.PUT("/slots/availability",
				middleware.RequireRoles(models.RoleProfessor, models.RoleCounselor),
				staffHandler.SetSlotAvailability)
		}
	}

	return r
}
