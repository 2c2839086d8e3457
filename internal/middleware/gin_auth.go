package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key holding the auth.PrivateIdentity.
const IdentityKey = "identity"

// GinRequireAuth adapts the net/http AuthMiddleware to Gin.
func GinRequireAuth(a *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			if id, ok := IdentityFromContext(r.Context()); ok {
				c.Set(IdentityKey, id)
			}
			c.Next()
		})

		a.RequireAuth(next).ServeHTTP(c.Writer, c.Request)

		// gate answered on its own: stop the chain
		if c.Writer.Written() {
			c.Abort()
		}
	}
}
