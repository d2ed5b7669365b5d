package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/conciergelabs/checkout-concierge/api/responses"
	"github.com/conciergelabs/checkout-concierge/pkg/config"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Concierge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		w.Header().Set("X-Concierge-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		checks["db"] = checkDependency(ctx, dbP)
		checks["redis"] = checkDependency(ctx, redisP)
		for name, status := range checks {
			if status != "ok" && status != "skipped" {
				healthy = false
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "dependency", name), "readiness check failed")
				}
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, status, checks)
	}
}

func checkDependency(ctx context.Context, p pinger) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
