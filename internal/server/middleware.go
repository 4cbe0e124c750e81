package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"hhc/scripture-sync/internal/logger"
)

// RequestIDKey is the gin context key a request's correlation id is
// stored under, and the response header it is echoed on.
const RequestIDKey = "request_id"

// RequestID assigns a correlation id to every request, the way a request
// moving through the Save Pipeline and the Sync Protocol can be traced
// across both the structured log and the client's own retry logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(RequestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// LoggerMiddleware logs each HTTP request in the same structured JSON
// shape the rest of the application writes through internal/logger,
// adapted from the teacher's gin.LoggerWithFormatter wiring.
func LoggerMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		fields := map[string]any{
			"method":     param.Method,
			"path":       param.Path,
			"status":     param.StatusCode,
			"latency":    param.Latency.String(),
			"ip":         param.ClientIP,
			"user_agent": param.Request.UserAgent(),
		}
		if param.ErrorMessage != "" {
			fields["error"] = param.ErrorMessage
		}
		logger.GetAppLogger().Audit("http request", fields)
		return ""
	})
}

// sessionUserKey and sessionRoleKey are the gin context keys the auth middleware
// populates for handlers to read.
const (
	sessionUserKey = "session_username"
	sessionRoleKey = "session_role"
)

// AuthMiddleware verifies the session cookie against internal/session,
// replacing the teacher's header-trusting AuthMiddleware: authentication
// here is a signed, server-cross-checked session token, never a header
// the caller could forge.
func (a *API) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(a.cookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(401, ErrorResponse{Error: "Not authenticated"})
			return
		}
		now := time.Now()
		sess, claims, err := a.sessions.Verify(token, now)
		if err != nil {
			c.AbortWithStatusJSON(401, ErrorResponse{Error: "Session expired or invalid"})
			return
		}
		if err := a.sessions.Touch(token, now); err != nil {
			logger.GetAppLogger().Warnf("auth: failed to touch session for %s: %v", sess.Username, err)
		}
		c.Set(sessionUserKey, sess.Username)
		c.Set(sessionRoleKey, claims.Role)
		c.Next()
	}
}

// ipLimiter is one client's per-IP token bucket, grounded on
// taibuivan-yomira's RateLimit middleware.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitPerIP throttles requests per client IP with a token bucket,
// guarding the login endpoint against brute-force traffic independently
// of internal/session's global failure cooldown.
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	clients := make(map[string]*ipLimiter)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		client, ok := clients[ip]
		if !ok {
			client = &ipLimiter{limiter: rate.NewLimiter(rps, burst)}
			clients[ip] = client
		}
		client.lastSeen = time.Now()
		allowed := client.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests, slow down."})
			return
		}
		c.Next()
	}
}

// RequireSecureTransport answers an insecure request with 426 Upgrade
// Required, per spec.md §6: "If the server requires a secure transport,
// it responds to an insecure request with status 426 and a
// human-readable hint." TLS termination in front of the process (a
// reverse proxy) is expected to set X-Forwarded-Proto; a direct TLS
// connection is detected from the request itself.
func (a *API) RequireSecureTransport() gin.HandlerFunc {
	return func(c *gin.Context) {
		secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
		if !secure {
			c.AbortWithStatusJSON(426, ErrorResponse{Error: "This server requires a secure (HTTPS) connection."})
			return
		}
		c.Next()
	}
}
