package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatter/tools/errs"
	jwtlib "chatter/tools/security"
)

// Context keys the handlers read after the middleware ran.
const (
	CtxUserIDKey = "authUserId"
	CtxTokenKey  = "authorization"
)

type Options struct {
	JWT jwtlib.Options
}

// Middleware validates "Authorization: Bearer <token>" (a bare token header
// is accepted too) and stores the token's user id into the gin context.
func Middleware(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
			return
		}

		claims, err := jwtlib.Verify(opts.JWT, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}
		uid := jwtlib.UserID(claims)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}

		c.Set(CtxTokenKey, token)
		c.Set(CtxUserIDKey, uid)
		c.Next()
	}
}

// UserID returns the authenticated user id set by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}
