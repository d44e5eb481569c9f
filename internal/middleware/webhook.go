package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WebhookSecretHeader carries the shared secret on gateway callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookAuth accepts only requests carrying the shared secret.
func WebhookAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(WebhookSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret", "code": "unauthenticated"})
			return
		}
		c.Next()
	}
}
