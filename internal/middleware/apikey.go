package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// The CRUD surface never sees credentials, only the stable owner id this
// middleware resolves. Swapping the API-key scheme for anything else only
// requires setting the same context key.
const ownerContextKey = "owner_id"

// IdentityConfig configures API-key based owner identification.
type IdentityConfig struct {
	// Keys maps an API key to the owner id it authenticates as.
	Keys map[string]string
	// HeaderName is the header carrying the key (default: X-API-Key).
	HeaderName string
}

// Identity authenticates requests by API key and attaches the resolved
// owner id to the request context.
type Identity struct {
	config IdentityConfig
}

func NewIdentity(config IdentityConfig) *Identity {
	if config.HeaderName == "" {
		config.HeaderName = "X-API-Key"
	}
	return &Identity{config: config}
}

// Middleware returns a gin handler that rejects requests without a valid
// API key and sets the owner id for the ones that carry one.
func (id *Identity) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(id.config.HeaderName)

		// Authorization: Bearer is accepted as a fallback.
		if apiKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_api_key",
				"message": "API key required. Pass it via the X-API-Key header or Authorization: Bearer",
			})
			c.Abort()
			return
		}

		// Constant-time comparison against every configured key.
		var ownerID string
		valid := false
		for validKey, owner := range id.config.Keys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
				valid = true
				ownerID = owner
				break
			}
		}

		if !valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_api_key",
				"message": "Invalid API key",
			})
			c.Abort()
			return
		}

		c.Set(ownerContextKey, ownerID)
		c.Next()
	}
}

// RequireOwner builds the identity middleware from a key -> owner map.
func RequireOwner(keys map[string]string) gin.HandlerFunc {
	return NewIdentity(IdentityConfig{Keys: keys}).Middleware()
}

// OwnerID extracts the authenticated owner id from the request context.
func OwnerID(c *gin.Context) (string, bool) {
	owner, exists := c.Get(ownerContextKey)
	if !exists {
		return "", false
	}
	id, ok := owner.(string)
	return id, ok && id != ""
}

// SetOwnerID places an owner id in the context directly. Intended for tests
// and for alternative identity providers.
func SetOwnerID(c *gin.Context, ownerID string) {
	c.Set(ownerContextKey, ownerID)
}
