package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"car-showcase/internal/identity"
	"car-showcase/internal/session"
)

const (
	KeySID     = "sid"
	KeySession = "session"
)

// SessionLoader 解析 sid cookie（没有就发一个），加载身份会话并挂到
// 请求 context。token 过期的刷新在 store 内部完成。
func SessionLoader(store *session.Store, cookieName string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(cookieName)
		if err != nil || sid == "" {
			sid = uuid.NewString()
			c.SetCookie(cookieName, sid, int(ttl.Seconds()), "/", "", false, true)
		}
		c.Set(KeySID, sid)

		sess, err := store.Get(c.Request.Context(), sid)
		if err == nil && sess != nil {
			c.Set(KeySession, sess)
			c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		}
		c.Next()
	}
}

func SID(c *gin.Context) string { return c.GetString(KeySID) }

func Session(c *gin.Context) *identity.Session {
	if v, ok := c.Get(KeySession); ok {
		if s, ok := v.(*identity.Session); ok {
			return s
		}
	}
	return nil
}
