package middleware

import (
	"net/http"
	"strings"
	"time"

	"pdf-qa-platform/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddlewareWithOrigins rejects requests from origins outside the
// allow-list with 403 and hands allowed ones to gin-contrib/cors for the
// response headers. Requests without an Origin header pass through.
// Install it before any other middleware.
func CORSMiddlewareWithOrigins(allowedOrigins []string) gin.HandlerFunc {
	allowed := func(origin string) bool {
		return isOriginAllowed(origin, allowedOrigins)
	}

	headers := cors.New(cors.Config{
		AllowOriginFunc:  allowed,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Session-ID", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: !allowsAnyOrigin(allowedOrigins),
		MaxAge:           12 * time.Hour,
	})

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && !allowed(origin) {
			utils.RespondWithError(c, http.StatusForbidden, "origin_not_allowed", "Origin not allowed", gin.H{"origin": origin})
			c.Abort()
			return
		}
		headers(c)
	}
}

func allowsAnyOrigin(allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if strings.TrimSpace(allowed) == "*" {
			return true
		}
	}
	return false
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if matchOriginPattern(origin, allowed) {
			return true
		}
	}
	return false
}

// Support wildcard patterns like *.example.com and https://*.example.com
func matchOriginPattern(origin, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if i := strings.Index(pattern, "*."); i >= 0 {
		scheme, domain := pattern[:i], pattern[i+1:] // domain keeps its leading dot
		if scheme != "" && !strings.HasPrefix(origin, scheme) {
			return false
		}
		return strings.HasSuffix(origin, domain)
	}
	return origin == pattern
}
