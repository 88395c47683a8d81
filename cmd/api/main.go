package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glowdesk/glowdesk/config"
	"github.com/glowdesk/glowdesk/pkg/api/handlers"
	"github.com/glowdesk/glowdesk/pkg/cache"
	"github.com/glowdesk/glowdesk/pkg/campaign"
	"github.com/glowdesk/glowdesk/pkg/database"
	"github.com/glowdesk/glowdesk/pkg/email"
	"github.com/glowdesk/glowdesk/pkg/logger"
	"github.com/glowdesk/glowdesk/pkg/metrics"
	custommiddleware "github.com/glowdesk/glowdesk/pkg/middleware"
	"github.com/glowdesk/glowdesk/pkg/sms"
	"github.com/glowdesk/glowdesk/pkg/store"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg := config.Load()
	appLogger := logger.New(cfg.LogLevel)
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize database
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	st := store.NewPostgres(db)
	if err := st.InitSchema(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize schema: %v", err)
	}

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Email + SMS providers (console mode without credentials)
	emailService := email.NewService(cfg.EmailFrom, cfg.EmailFromName, cfg.SendGridAPIKey)

	var smsProvider sms.Provider
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		smsProvider = sms.NewTwilioProvider(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
		log.Printf("✅ SMS provider initialized with Twilio")
	} else {
		smsProvider = sms.ConsoleProvider{}
		log.Printf("⚠️  SMS provider in console-only mode (set TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN for production)")
	}

	// Campaign engine
	quietLoc, err := time.LoadLocation(cfg.QuietHoursZone)
	if err != nil {
		log.Fatalf("❌ Invalid quiet hours timezone %q: %v", cfg.QuietHoursZone, err)
	}
	quiet := campaign.QuietHours{StartHour: cfg.QuietHoursStart, EndHour: cfg.QuietHoursEnd, Location: quietLoc}

	resolver := campaign.NewAudienceResolver(st, campaign.DefaultAudienceConfig(), appLogger, nil)
	channels := []campaign.Channel{
		campaign.NewEmailChannel(emailService, cfg.EmailBatchSize, cfg.EmailSendDelay),
		campaign.NewSMSChannel(smsProvider, cfg.TwilioFromNumber, cfg.DefaultRegion, cfg.SMSBatchSize, cfg.SMSSendDelay),
	}
	claimer := campaign.NewRedisClaimer(redisClient, cfg.ClaimTTL)
	processor := campaign.NewProcessor(st, resolver, channels, claimer, appLogger,
		campaign.WithMetrics(prometheusMetrics),
		campaign.WithSendTimeout(cfg.SendTimeout),
	)
	campaignService := campaign.NewService(st, processor, quiet, appLogger,
		campaign.WithServiceMetrics(prometheusMetrics))

	scheduler := campaign.NewScheduler(st, processor, cfg.SchedulerInterval, appLogger,
		campaign.WithSchedulerMetrics(prometheusMetrics))
	schedulerHandle, err := scheduler.Start(context.Background())
	if err != nil {
		log.Fatalf("❌ Failed to start campaign scheduler: %v", err)
	}
	log.Printf("✅ Campaign scheduler started (interval: %s)", cfg.SchedulerInterval)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true, // Repanic after capturing to let the Recover middleware handle it
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.CORSAllowedOrigins)))
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "GlowDesk API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "down",
			})
		}
		if _, err := redisClient.Redis.Ping(ctx).Result(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"cache":  "down",
			})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":    "healthy",
			"database":  "up",
			"cache":     "up",
			"scheduler": !scheduler.Stopped(),
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := e.Group("/api/v1")
	campaignHandler := handlers.NewCampaignHandler(campaignService)

	campaignsGroup := v1.Group("/campaigns")
	{
		campaignsGroup.POST("", campaignHandler.Create)
		campaignsGroup.GET("", campaignHandler.List)
		campaignsGroup.GET("/:id", campaignHandler.Get)
		campaignsGroup.PATCH("/:id", campaignHandler.Update)
		campaignsGroup.DELETE("/:id", campaignHandler.Delete)
		campaignsGroup.POST("/:id/send", campaignHandler.Send)
		campaignsGroup.POST("/:id/schedule", campaignHandler.Schedule)
		campaignsGroup.POST("/:id/cancel", campaignHandler.Cancel)
		campaignsGroup.GET("/:id/stats", campaignHandler.Stats)
		campaignsGroup.GET("/:id/recipients", campaignHandler.Recipients)
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 GlowDesk API starting on %s", address)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d)", cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	log.Printf("⏰ Campaign scheduler: every %s (email batch %d, sms batch %d)",
		cfg.SchedulerInterval, cfg.EmailBatchSize, cfg.SMSBatchSize)

	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	schedulerHandle.Stop()
	log.Println("✅ Campaign scheduler stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
