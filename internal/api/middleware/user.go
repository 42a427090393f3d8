package middleware

import (
	"strings"

	"grocery-companion/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader 由上游驗證層帶入的使用者識別
	UserIDHeader = "X-User-ID"
	// UserIDKey 使用者識別在 gin context 中的鍵
	UserIDKey = "user_id"
)

// RequireUser 要求請求帶有使用者識別
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			status, resp := common.ToErrorResponse(common.ErrMissingUser, false)
			c.AbortWithStatusJSON(status, resp)
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID 取得目前請求的使用者識別
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
