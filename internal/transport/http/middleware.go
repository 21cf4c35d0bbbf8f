package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/flowchat/internal/auth"
)

// adminAudience is the audience admin tokens are issued for.
const adminAudience = "flowchat-admin"

// ContextKeyAdmin is the context key holding the validated admin subject.
const ContextKeyAdmin = "admin_subject"

// AdminJWTConfig returns the token settings shared by the admin middleware and token issuing.
func AdminJWTConfig(secret, issuer string, ttl time.Duration) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(secret),
		Issuer:   issuer,
		Audience: adminAudience,
		TTL:      ttl,
	}
}

// AdminAuthMiddleware accepts only requests carrying a valid admin bearer token.
func AdminAuthMiddleware(cfg *auth.JWTConfig, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(cfg.Secret) == 0 {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "admin api is disabled"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(cfg, parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			status := http.StatusUnauthorized
			if errors.Is(err, auth.ErrInvalidToken) {
				status = http.StatusForbidden
			}
			c.JSON(status, ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextKeyAdmin, claims.Subject)
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
