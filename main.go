package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/eduhub/course-service/internal/cache"
	"github.com/eduhub/course-service/internal/config"
	"github.com/eduhub/course-service/internal/events"
	"github.com/eduhub/course-service/internal/handlers"
	"github.com/eduhub/course-service/internal/notify"
	"github.com/eduhub/course-service/internal/payment"
	"github.com/eduhub/course-service/internal/repositories/postgres"
	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
	"github.com/eduhub/course-service/internal/validator"
	"github.com/eduhub/course-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis backs the course cache, logout denylist and reset codes. Without
	// it those degrade instead of failing startup.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", "error", err)
			redisClient = nil
		}
	}
	cache.CourseCacheConfig.TTL = cfg.Cache.CourseTTL
	cacheManager := cache.NewCacheManager(redisClient)

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	bus, err := events.NewBus(events.BusConfig{
		KafkaBrokers:  cfg.Events.KafkaBrokers,
		ConsumerGroup: cfg.Events.ConsumerGroup,
	}, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}

	var mailer notify.Sender = notify.NewConsoleSender(slogLogger)
	if cfg.Email.SendGridAPIKey != "" {
		mailer = notify.NewSendGridSender(cfg.Email.SendGridAPIKey, mail.Address{
			Name:    cfg.Email.SenderName,
			Address: cfg.Email.SenderEmail,
		}, slogLogger)
	}

	var gateway payment.Gateway
	if cfg.Payment.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.Payment.StripeSecretKey, cfg.Payment.StripeWebhookSecret)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      repoManager.GetRepository(),
		Logger:    slogLogger,
		Validator: validator.New(),
		Publisher: bus,
		Mailer:    mailer,
		Gateway:   gateway,
		Denylist:  cache.NewTokenDenylist(cacheManager),
		Resets:    cache.NewResetCodeStore(cacheManager, cfg.Cache.ResetCodeTTL),
		Tokens: services.TokenConfig{
			Secret: []byte(cfg.JWT.Secret),
			Issuer: cfg.JWT.Issuer,
			TTL:    cfg.JWT.ExpiresIn,
		},
		Pricing: services.Pricing{
			Currency:   cfg.Payment.Currency,
			TaxPercent: cfg.Payment.TaxPercent,
		},
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	serviceManager.Notification().Register(bus)

	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()
	go func() {
		if err := bus.Run(busCtx); err != nil {
			logger.Error("Event router stopped", "error", err)
		}
	}()
	select {
	case <-bus.Running():
		logger.Info("Event router running", "transport", bus.Transport())
	case <-time.After(10 * time.Second):
		log.Fatalf("Event router did not start")
	}

	// Initialize handlers
	healthChecks := map[string]handlers.HealthChecker{"database": serviceManager}
	if redisClient != nil {
		healthChecks["redis"] = cacheManager
	}
	handlerManager := handlers.NewHandlerManager(
		serviceManager,
		logger,
		handlers.NewCasdoorVerifier(cfg.Casdoor, serviceManager.Auth(), logger),
		handlers.CookieConfig{MaxAge: cfg.JWT.CookieExpires, Secure: cfg.IsProduction()},
		healthChecks,
	)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.AllowedOrigins)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	stopBus()
	if err := bus.Close(); err != nil {
		logger.Error("Failed to close event bus", "error", err)
	}

	// Closes the database and Redis connections
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	logger.Info("Server exited")
}
