package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"car-showcase/internal/adminform"
	"car-showcase/internal/carapi"
	"car-showcase/internal/session"
	"car-showcase/internal/transport/http/handler"
	mdw "car-showcase/internal/transport/http/middleware"
	"car-showcase/internal/transport/http/view"
)

type Deps struct {
	Log        *zap.Logger
	Store      *session.Store
	API        *carapi.Client
	Forms      *adminform.Controller
	CookieName string
	SessionTTL time.Duration
}

func New(d Deps) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(15*time.Second),
		ginzap.RecoveryWithZap(d.Log, true),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
		cors.Default(),
	)

	r.SetHTMLTemplate(view.Templates(d.API.BaseURL()))

	// 健康检查、指标（不走会话加载）
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 之后的路由都带会话
	r.Use(mdw.SessionLoader(d.Store, d.CookieName, d.SessionTTL))

	handler.NewPages(d.API, d.Log).Mount(r)
	handler.NewAuth(d.Store, d.Forms, d.Log).Mount(r)
	handler.NewAdmin(d.API, d.Forms, d.Log).Mount(r, mdw.Guard("admin"))

	return r
}
