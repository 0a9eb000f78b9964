package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tailortalk-ai/booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/tailortalk-ai/booking-assistant/internal/http/middleware"
	"github.com/tailortalk-ai/booking-assistant/internal/observability/metrics"
	"github.com/tailortalk-ai/booking-assistant/internal/webchat"
	"github.com/tailortalk-ai/booking-assistant/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *handlers.ChatHandler
	WebchatHandler     *webchat.Handler
	Metrics            *metrics.ConversationMetrics
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.Metrics))
	}

	r.Get("/health", cfg.ChatHandler.HealthCheck)
	r.Post("/chat", cfg.ChatHandler.HandleChat)
	r.Get("/parse", cfg.ChatHandler.HandleParse)
	r.Get("/availability", cfg.ChatHandler.HandleAvailability)

	if cfg.WebchatHandler != nil {
		r.Handle("/webchat/ws", cfg.WebchatHandler.ServeWS())
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
