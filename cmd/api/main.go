package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tailortalk-ai/booking-assistant/internal/api/router"
	"github.com/tailortalk-ai/booking-assistant/internal/availability"
	"github.com/tailortalk-ai/booking-assistant/internal/booking"
	appconfig "github.com/tailortalk-ai/booking-assistant/internal/config"
	"github.com/tailortalk-ai/booking-assistant/internal/conversation"
	"github.com/tailortalk-ai/booking-assistant/internal/http/handlers"
	"github.com/tailortalk-ai/booking-assistant/internal/nlp"
	"github.com/tailortalk-ai/booking-assistant/internal/observability/metrics"
	"github.com/tailortalk-ai/booking-assistant/internal/webchat"
	"github.com/tailortalk-ai/booking-assistant/pkg/logging"
)

func main() {
	// Load .env if present; real deployments set environment variables.
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	conversationMetrics := metrics.NewConversationMetrics(registry)

	// Session storage
	defaults := conversation.SessionDefaults{
		DurationMinutes: cfg.DefaultDurationMinutes,
		MeetingType:     cfg.DefaultMeetingType,
		HistoryLimit:    cfg.HistoryLimit,
	}
	var sessions conversation.SessionStore
	if cfg.UseMemorySessions {
		sessions = conversation.NewMemorySessionStore(defaults)
		logger.Info("using in-memory session store")
	} else {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		sessions = conversation.NewRedisSessionStore(redis.NewClient(opts), defaults, cfg.SessionTTL)
		logger.Info("using redis session store", "addr", cfg.RedisAddr)
	}

	// Scheduling collaborators
	schedule, err := availability.NewSchedule(availability.Options{
		OpensAt:      cfg.BusinessHoursStart,
		ClosesAt:     cfg.BusinessHoursEnd,
		SlotInterval: time.Duration(cfg.SlotIntervalMinutes) * time.Minute,
		MaxSlots:     cfg.MaxSlotsPerDay,
	})
	if err != nil {
		logger.Error("invalid schedule configuration", "error", err)
		os.Exit(1)
	}
	committer := booking.NewMemoryCommitter(schedule, logger)

	// Conversation engine
	extractor := nlp.NewExtractor(nlp.NewLibrary(), nlp.ExtractorOptions{
		BusinessHoursStart: cfg.BusinessHoursStart,
		BusinessHoursEnd:   cfg.BusinessHoursEnd,
	})
	engine, err := conversation.NewEngine(conversation.EngineConfig{
		Extractor:    extractor,
		Sessions:     sessions,
		Availability: schedule,
		Booking:      committer,
		Metrics:      conversationMetrics,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to build conversation engine", "error", err)
		os.Exit(1)
	}

	chatHandler := handlers.NewChatHandler(engine, schedule, location, logger)
	webchatHandler := webchat.NewHandler(engine, location, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		WebchatHandler:     webchatHandler,
		Metrics:            conversationMetrics,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: []string{"*"},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
