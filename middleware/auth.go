package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Tirth-chokshi/strategy-backend/models"
	"github.com/Tirth-chokshi/strategy-backend/services"
)

const userKey = "user"

// tokenFrom looks for the token in the Authorization header, then the
// "token" cookie, then the "token" query parameter.
func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if v, err := c.Cookie("token"); err == nil && v != "" {
		return v
	}
	return c.Query("token")
}

// Auth verifies the bearer token and stores the caller (without password
// hash) in the Gin context.
func Auth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.Authenticate(c.Request.Context(), tokenFrom(c))
		if err != nil {
			status := http.StatusUnauthorized
			if services.KindOf(err) == services.KindInternal {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, gin.H{"success": false, "message": services.MessageOf(err)})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth, or nil on unprotected routes.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
