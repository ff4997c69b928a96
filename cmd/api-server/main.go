package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/api/swagger"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/repository"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/routes"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/seed"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/service"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/cache"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/config"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/logger"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/storage"
)

// @title Consultation Queue API
// @version 1.0.0
// @description Booking, queueing and priority management for student consultations
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, queue status cache disabled", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository()
	slotRepo := repository.NewSlotRepository(cfg.Booking.MinLeadTime, time.Now)
	appointmentRepo := repository.NewAppointmentRepository()
	queueRepo := repository.NewQueueRepository()
	notificationRepo := repository.NewNotificationRepository()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	archive, err := storage.NewArchive(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("export archive init failed", "error", err)
	}
	signer := storage.NewSigner(cfg.JWT.Secret, cfg.Export.TokenTTL)

	deliveryPool := service.NewDeliveryPool(logr)
	deliveryPool.Start(context.Background())
	defer deliveryPool.Stop()

	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(notificationRepo, deliveryPool, logr, time.Now)
	userSvc := service.NewUserService(userRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	consultationSvc := service.NewConsultationService(service.ConsultationServiceParams{
		Users:          userRepo,
		Slots:          slotRepo,
		Registry:       appointmentRepo,
		Queues:         queueRepo,
		Notifier:       notificationSvc,
		Cache:          cacheRepo,
		Metrics:        metricsSvc,
		Archive:        archive,
		Signer:         signer,
		Validator:      validate,
		Logger:         logr,
		StatusCacheTTL: cfg.Queue.StatusCacheTTL,
	})

	if cfg.Demo.Enabled {
		if _, err := seed.Run(context.Background(), cfg.Demo, userSvc, consultationSvc, logr); err != nil {
			logr.Sugar().Fatalw("demo seeding failed", "error", err)
		}
	}

	r := routes.New(cfg, logr, routes.Services{
		Auth:          authSvc,
		Users:         userSvc,
		Consultations: consultationSvc,
		Notifications: notificationSvc,
		Metrics:       metricsSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
