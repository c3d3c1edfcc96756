package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/tastebudhq/storefront-backend/pkg/config"
)

// CORS returns middleware that applies the API's allowed origin policy.
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	origins := []string{"http://localhost:3000"}
	if cfg != nil && len(cfg.App.CORSOrigins) > 0 {
		origins = cfg.App.CORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
