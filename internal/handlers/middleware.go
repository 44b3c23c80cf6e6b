package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// APIKeyAuth checks the Authorization header against the configured key.
// Both "Bearer <key>" and a bare key are accepted.
func APIKeyAuth(apiKey string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			log.Error().Msg("API_KEY not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "api_key_not_configured",
			})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn().Str("path", c.FullPath()).Msg("request without Authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authorization_header_required",
			})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != apiKey {
			log.Warn().Str("path", c.FullPath()).Msg("invalid API key attempt")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid_api_key",
			})
			return
		}

		c.Next()
	}
}
