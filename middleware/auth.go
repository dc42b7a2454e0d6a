package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/studyflash-backend/services"
)

// SessionCookieName là cookie chứa session token.
const SessionCookieName = "studyflash.session_token"

// Các key lưu trong gin.Context.
const (
	ContextSession = "session"
	ContextUserID  = "user_id"
	ContextToken   = "session_token"
)

// SessionToken lấy token từ cookie, nếu không có thì thử header "Authorization: Bearer".
func SessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SessionMiddleware nạp session (nếu có) vào context; không có session thì vẫn cho qua.
func SessionMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			c.Next()
			return
		}

		session, err := auth.GetSession(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrSessionNotFound) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
				c.Abort()
				return
			}
			// Token sai / hết hạn -> coi như anonymous
			c.Next()
			return
		}

		c.Set(ContextSession, session)
		c.Set(ContextUserID, session.User.ID)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// CurrentSession trả về session đã được SessionMiddleware nạp.
func CurrentSession(c *gin.Context) (*services.SessionWithUser, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil, false
	}
	session, ok := v.(*services.SessionWithUser)
	return session, ok
}

func DBMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Next()
	}
}
