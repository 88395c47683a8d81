package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4/middleware"
)

// CORSConfig returns the CORS configuration for the API. Origins can be
// extended through configuration; these are the defaults.
func CORSConfig(extraOrigins []string) middleware.CORSConfig {
	origins := []string{
		"http://localhost:5173",  // Development (Vite dev server)
		"https://glowdesk.app",   // Production
		"https://www.glowdesk.app",
	}
	origins = append(origins, extraOrigins...)

	return middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowCredentials: true,
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
	}
}
