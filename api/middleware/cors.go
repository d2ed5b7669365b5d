package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/conciergelabs/checkout-concierge/pkg/config"
)

// CORS applies the widget embedding policy. The widget runs inside retailer
// pages, so the allowed origin comes from deploy config rather than a
// hardcoded list.
func CORS(cfg config.RelayConfig) func(http.Handler) http.Handler {
	origins := []string{"http://localhost:3000"}
	if cfg.AllowOrigin != "" {
		origins = []string{cfg.AllowOrigin}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
