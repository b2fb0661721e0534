package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/atelier-backend/internal/config"
	"github.com/ignatzorin/atelier-backend/internal/db"
	"github.com/ignatzorin/atelier-backend/internal/email"
	"github.com/ignatzorin/atelier-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/atelier-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/atelier-backend/internal/http/router"
	"github.com/ignatzorin/atelier-backend/internal/logger"
	"github.com/ignatzorin/atelier-backend/internal/repository"
	"github.com/ignatzorin/atelier-backend/internal/schedule"
	"github.com/ignatzorin/atelier-backend/internal/service"
	"github.com/ignatzorin/atelier-backend/internal/storage"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	development := cfg.Env == "development"
	logLevel := "info"
	if development {
		logLevel = "debug"
	}
	logger.Init(logLevel, development)

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	imageStorage, err := storage.NewImageStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	mailer := email.NewMailer(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	// Репозитории.
	appointmentRepo := repository.NewAppointmentRepository(dbConn)
	verificationRepo := repository.NewVerificationRepository(dbConn)
	adminUserRepo := repository.NewAdminUserRepository(dbConn)
	carouselRepo := repository.NewCarouselRepository(dbConn)

	// Сервисы.
	appointmentService := service.NewAppointmentService(appointmentRepo, mailer)
	verificationService := service.NewVerificationService(verificationRepo, mailer, cfg.CodeTTL, cfg.CodeCooldown)
	authService := service.NewAuthService(adminUserRepo, tokenManager)
	seedService := service.NewSeedService(appointmentRepo)

	// Фоновые задачи: чистка кодов и напоминания о визитах.
	scheduler := schedule.NewScheduler()
	if err := scheduler.AddJob(schedule.NewCleanupCodesJob(verificationService), cfg.CleanupSpec); err != nil {
		log.Fatalf("main: не удалось зарегистрировать задачу чистки кодов: %v", err)
	}
	if err := scheduler.AddJob(schedule.NewRemindersJob(appointmentService, cfg.ReminderWindow), cfg.ReminderSpec); err != nil {
		log.Fatalf("main: не удалось зарегистрировать задачу напоминаний: %v", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// HTTP хэндлеры.
	appointmentHandler := httpHandlers.NewAppointmentHandler(appointmentService)
	verificationHandler := httpHandlers.NewVerificationHandler(verificationService)
	authHandler := httpHandlers.NewAuthHandler(authService)
	carouselHandler := httpHandlers.NewCarouselHandler(carouselRepo, imageStorage)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)
	seedHandler := httpHandlers.NewSeedHandler(seedService)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, appointmentHandler, verificationHandler, authHandler, carouselHandler, healthHandler, seedHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	})

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
