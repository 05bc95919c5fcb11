package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/selimacar/crm-notifier/environments"
	"github.com/selimacar/crm-notifier/handlers"
	"github.com/selimacar/crm-notifier/internal/channel"
	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/internal/gateway"
	"github.com/selimacar/crm-notifier/internal/phone"
	"github.com/selimacar/crm-notifier/internal/repository"
	"github.com/selimacar/crm-notifier/internal/scheduler"
	"github.com/selimacar/crm-notifier/internal/service"
	"github.com/selimacar/crm-notifier/internal/webhook"
	"github.com/selimacar/crm-notifier/pkg/database"
	"github.com/selimacar/crm-notifier/pkg/logger"
	"github.com/selimacar/crm-notifier/pkg/redis"
	"github.com/selimacar/crm-notifier/pkg/relay"
	"github.com/selimacar/crm-notifier/pkg/validator"
	"github.com/selimacar/crm-notifier/routes"
)

// @title CRM Notifier API
// @version 1.0
// @description Scheduled multi-channel notification delivery for CRM events

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	logger.Init()

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}

	// Load config
	cfg := environments.Load()

	// Hard-fail if required secrets are missing
	if cfg.Auth.APIKey == "" {
		logger.Fatalf("API_KEY is required but not set")
	}
	if cfg.Auth.SchedulerAPIKey == "" {
		logger.Fatalf("SCHEDULER_API_KEY is required but not set")
	}
	if cfg.Gateway.AccessToken == "" || cfg.Gateway.PhoneNumberID == "" {
		logger.Warnf("Gateway credentials not set; chat sends will fail until GATEWAY_ACCESS_TOKEN and GATEWAY_PHONE_NUMBER_ID are configured")
	}

	logger.Infof("Starting CRM Notifier...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Init redis
	var redisClient *redis.Client
	redisClient, err = redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis not available, status caching disabled: %v", err)
		redisClient = nil
	}

	// Gateway client for the chat channel
	gatewayClient := gateway.NewClient(cfg.Gateway)

	normalizer := phone.NewNormalizer(phone.Config{
		DefaultCountryCode: cfg.Phone.DefaultCountryCode,
		TrunkPrefix:        cfg.Phone.TrunkPrefix,
		MobilePrefix:       cfg.Phone.MobilePrefix,
	})

	// Repositories
	messageRepo := repository.NewMessageRepository(db)
	contactRepo := repository.NewContactRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	// Services. The cache parameters are interfaces, so a nil
	// *redis.Client must be passed as a literal nil to keep the nil
	// checks inside the services meaningful.
	var whatsappService *service.WhatsAppService
	var ingestor *webhook.Ingestor
	if redisClient != nil {
		whatsappService = service.NewWhatsAppService(gatewayClient, messageRepo, contactRepo, redisClient, normalizer, cfg.Bulk)
		ingestor = webhook.NewIngestor(messageRepo, contactRepo, redisClient)
	} else {
		whatsappService = service.NewWhatsAppService(gatewayClient, messageRepo, contactRepo, nil, normalizer, cfg.Bulk)
		ingestor = webhook.NewIngestor(messageRepo, contactRepo, nil)
	}

	templateService := service.NewTemplateService(templateRepo, gatewayClient)

	// Channel registry: email and SMS ride the relay, chat rides the
	// gateway. Push stays unregistered until an actual push provider is
	// wired in; reminders on that channel fail with a clear error.
	registry := channel.NewRegistry()
	registry.Register(domain.ChannelChat, channel.NewChatSender(whatsappService))

	if cfg.Relay.EmailURL != "" {
		registry.Register(domain.ChannelEmail, channel.NewEmailSender(relay.NewClient(cfg.Relay.EmailURL, cfg.Relay.AuthKey, cfg.Relay.Timeout)))
	} else {
		logger.Warnf("EMAIL_RELAY_URL not set; email reminders will fail")
	}

	if cfg.Relay.SMSURL != "" {
		registry.Register(domain.ChannelSMS, channel.NewSMSSender(relay.NewClient(cfg.Relay.SMSURL, cfg.Relay.AuthKey, cfg.Relay.Timeout)))
	} else {
		logger.Warnf("SMS_RELAY_URL not set; SMS reminders will fail")
	}

	reminderService := service.NewReminderService(reminderRepo, registry, cfg.Scheduler)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize scheduler
	sched := scheduler.NewScheduler(reminderService, cfg.Scheduler.TickInterval)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient, sched)
	whatsappHandler := handlers.NewWhatsAppHandler(whatsappService, ingestor, cfg)
	reminderHandler := handlers.NewReminderHandler(reminderService)
	templateHandler := handlers.NewTemplateHandler(templateService)
	schedulerHandler := handlers.NewSchedulerHandler(sched, ctx, cfg)

	// Auto-start scheduler
	if os.Getenv("AUTO_START_SCHEDULER") != "false" {
		logger.Infof("Auto-starting scheduler...")
		if err := sched.StartWithParams(
			ctx,
			int(cfg.Scheduler.TickInterval.Seconds()),
			cfg.Alert.WebhookURL,
			cfg.Alert.IterationCount,
		); err != nil {
			logger.Warnf("Failed to auto-start scheduler: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"x-crm-auth-key",
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, whatsappHandler, reminderHandler, templateHandler, schedulerHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context to signal all goroutines to stop
	cancel()

	// Stop scheduler first (with timeout)
	if sched.IsRunning() {
		logger.Infof("Stopping scheduler...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- sched.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping scheduler: %v", err)
			} else {
				logger.Infof("Scheduler stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Scheduler stop timeout, forcing shutdown")
		}
	}

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
