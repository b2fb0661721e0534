package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/atelier-backend/internal/config"
	"github.com/ignatzorin/atelier-backend/internal/http/handlers"
	"github.com/ignatzorin/atelier-backend/internal/http/middleware"
	"github.com/ignatzorin/atelier-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	appointmentHandler *handlers.AppointmentHandler,
	verificationHandler *handlers.VerificationHandler,
	authHandler *handlers.AuthHandler,
	carouselHandler *handlers.CarouselHandler,
	healthHandler *handlers.HealthHandler,
	seedHandler *handlers.SeedHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	if seedHandler != nil && cfg.Env == "development" {
		api.POST("/seed", seedHandler.Seed)
	}

	// Публичные маршруты витрины
	publicRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	api.POST("/appointments", publicRateLimit, appointmentHandler.Create)
	api.GET("/carousel", carouselHandler.List)

	// Коды подтверждения: отправка жёстко лимитируется,
	// сервис дополнительно держит кулдаун на email
	verificationGroup := api.Group("/verification")
	verificationGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		verificationGroup.POST("/send-code", verificationHandler.SendCode)
		verificationGroup.POST("/verify-code", verificationHandler.VerifyCode)
	}

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Админка
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager))
	{
		admin.GET("/me", authHandler.Me)

		admin.GET("/appointments", appointmentHandler.List)
		admin.GET("/appointments/stats", appointmentHandler.Stats)
		admin.GET("/appointments/status-options", appointmentHandler.StatusOptions)
		admin.GET("/appointments/:id", middleware.IDValidator("id"), appointmentHandler.Get)
		admin.PUT("/appointments/:id", middleware.IDValidator("id"), appointmentHandler.Update)
		admin.PATCH("/appointments/:id/status", middleware.IDValidator("id"), appointmentHandler.UpdateStatus)
		admin.DELETE("/appointments/:id", middleware.IDValidator("id"), appointmentHandler.Delete)

		admin.POST("/carousel", carouselHandler.Upload)
		admin.DELETE("/carousel/:id", middleware.IDValidator("id"), carouselHandler.Delete)
	}

	return r
}
