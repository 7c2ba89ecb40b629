package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware allows browser clients from allowedOrigins ("*" for any).
// Credentials are never allowed, so "*" does not expose cookies to every site.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	}).Handler
}
