package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderAPIKey is the header the scraping agent authenticates with.
const HeaderAPIKey = "X-Api-Key"

// APIKey guards agent ingestion endpoints with a shared key. An empty
// configured key disables ingestion entirely rather than opening it up.
type APIKey struct {
	key string
}

func NewAPIKey(key string) *APIKey {
	return &APIKey{key: strings.TrimSpace(key)}
}

// GinAuth returns a Gin middleware that rejects requests without the key.
func (a *APIKey) GinAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderAPIKey)
		if a.key == "" || got == "" ||
			subtle.ConstantTimeCompare([]byte(a.key), []byte(got)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "authentication_failed",
				"message": "Invalid API key",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
