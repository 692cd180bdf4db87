package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencbt/practice-backend/internal/response"
	"github.com/opencbt/practice-backend/internal/service"
)

// CheckSingleDeviceSession validates the token's session id against the active
// session in Redis. A mismatch means a newer login displaced this session.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		ok, err := authService.ValidateSession(c.Request.Context(), claims.UserID, claims.SessionID)
		if err != nil || !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}
