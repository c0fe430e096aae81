package flash

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// 一次性提示（toast 的服务端等价物）：写进短命 cookie，下一次渲染取走即清
const cookieName = "flash"

const (
	KindSuccess = "success"
	KindError   = "error"
)

type Notice struct {
	Kind    string
	Message string
}

func (n *Notice) IsError() bool { return n != nil && n.Kind == KindError }

func Set(c *gin.Context, kind, msg string) {
	c.SetCookie(cookieName, kind+"|"+msg, 60, "/", "", false, true)
}

func Success(c *gin.Context, msg string) { Set(c, KindSuccess, msg) }
func Error(c *gin.Context, msg string)   { Set(c, KindError, msg) }

// Take 读出并立刻失效，保证提示只显示一次
func Take(c *gin.Context) *Notice {
	v, err := c.Cookie(cookieName)
	if err != nil || v == "" {
		return nil
	}
	c.SetCookie(cookieName, "", -1, "/", "", false, true)
	kind, msg, ok := strings.Cut(v, "|")
	if !ok {
		return &Notice{Kind: KindSuccess, Message: v}
	}
	return &Notice{Kind: kind, Message: msg}
}
