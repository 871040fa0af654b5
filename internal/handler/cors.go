package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const corsMaxAge = 12 * time.Hour

// CORSMiddleware creates a CORS middleware. A "*" origin allows any origin.
func CORSMiddleware(allowedOrigins, allowedMethods, allowedHeaders []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     allowedMethods,
		AllowHeaders:     allowedHeaders,
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}

	for _, origin := range allowedOrigins {
		if origin == "*" {
			// Credentials cannot be combined with a wildcard, so echo the request origin instead
			cfg.AllowOriginFunc = func(string) bool { return true }
			return cors.New(cfg)
		}
	}

	cfg.AllowOrigins = allowedOrigins
	return cors.New(cfg)
}
