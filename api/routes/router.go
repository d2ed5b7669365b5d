package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/conciergelabs/checkout-concierge/api/controllers"
	"github.com/conciergelabs/checkout-concierge/api/middleware"
	"github.com/conciergelabs/checkout-concierge/internal/relay"
	"github.com/conciergelabs/checkout-concierge/internal/stream"
	"github.com/conciergelabs/checkout-concierge/pkg/config"
	"github.com/conciergelabs/checkout-concierge/pkg/db"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
	"github.com/conciergelabs/checkout-concierge/pkg/metrics"
	"github.com/conciergelabs/checkout-concierge/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	svc *relay.Service,
	hub *stream.Hub,
	guard *redis.DeliveryGuard,
	dbClient *db.Client,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.Relay),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Post("/checkout", controllers.Checkout(svc, logg))
	r.Post("/webhook", controllers.Webhook(svc, guard, cfg.Agent.SecretKey, logg))
	r.Get("/status/{sessionID}", controllers.Status(hub, logg))

	r.Route("/run/{sessionID}", func(r chi.Router) {
		r.Post("/user_interaction", controllers.UserInteraction(svc, logg))
		r.Post("/interrupt", controllers.Interrupt(svc, logg))
	})

	return r
}
