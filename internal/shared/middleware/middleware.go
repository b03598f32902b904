package middleware

import (
	"net/http"
	"strings"

	"cineseat/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

// ContextKeyHolder is the gin context key carrying the holder token.
const ContextKeyHolder = "holder_token"

// HolderToken extracts the opaque identity token issued by the auth
// collaborator from the Authorization header. The token is never
// interpreted here; the ledger only compares it for equality.
func HolderToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		c.Set(ContextKeyHolder, parts[1])
		c.Next()
	}
}

// Holder returns the holder token set by HolderToken, if any.
func Holder(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextKeyHolder)
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	return token, ok && token != ""
}
