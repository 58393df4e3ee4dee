package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"family-finance/internal/model"
	"family-finance/internal/service"
	"family-finance/internal/util"
)

// CurrentUserKey is the gin context key holding the authenticated *model.User.
const CurrentUserKey = "currentUser"

// Auth resolves the session token and stores the user in the context.
// The token is read from the Authorization header, the session cookie, or
// the token query parameter used by download links.
func Auth(users *service.UserService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = strings.TrimSpace(parts[1])
			}
		}
		if tokenStr == "" {
			if cookie, err := c.Cookie(cookieName); err == nil {
				tokenStr = cookie
			}
		}
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}

		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "não autenticado")
			c.Abort()
			return
		}

		user, err := users.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrForbidden):
				util.Error(c, http.StatusForbidden, util.CodeForbidden, "conta bloqueada")
			case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrNotFound):
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "sessão expirada, entre novamente")
			default:
				util.Fail(c, err)
			}
			c.Abort()
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

// RequireRole rejects users whose role is not listed. It must run after Auth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !slices.Contains(roles, user.Role) {
			util.Error(c, http.StatusForbidden, util.CodeForbidden, "acesso negado")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth, or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
