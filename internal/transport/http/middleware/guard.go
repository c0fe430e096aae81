package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"car-showcase/internal/identity"
	"car-showcase/internal/transport/http/flash"
)

// Decision 路由守卫的裁决：放行，或带提示的重定向。
// 导航决策在进入页面前做掉，渲染逻辑里不做跳转。
type Decision struct {
	Allow    bool
	Redirect string
	Notice   string
}

// Check 纯函数：未登录去 /login；角色不符回首页并提示。
// 会话每个请求重新加载，登出后下一次请求立刻生效。
func Check(sess *identity.Session, requireRole string) Decision {
	if sess == nil {
		return Decision{Redirect: "/login"}
	}
	if requireRole != "" && sess.Role() != requireRole {
		return Decision{Redirect: "/", Notice: "Access Denied: you don't have the required privileges"}
	}
	return Decision{Allow: true}
}

// Guard 受保护页面的 gin 中间件包装
func Guard(requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := Check(Session(c), requireRole)
		if d.Allow {
			c.Next()
			return
		}
		if d.Notice != "" {
			flash.Error(c, d.Notice)
		}
		c.Redirect(http.StatusSeeOther, d.Redirect)
		c.Abort()
	}
}
