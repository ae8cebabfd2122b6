// Package middleware provides HTTP middleware for the deployment status API.
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns a read-only CORS middleware for the given origins.
func CORS(allowedOrigins []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300, // Maximum value not ignored by any of major browsers
	})
}
