package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"car-showcase/internal/carapi"
	"car-showcase/internal/transport/http/flash"
	mdw "car-showcase/internal/transport/http/middleware"
)

// Inventory 页面需要的库存 API 子集（carapi.Client 实现）
type Inventory interface {
	GetAllCars(ctx context.Context) ([]carapi.Car, error)
	DeleteCar(ctx context.Context, id int64) error
}

// Pages 公开页面。首页只在有会话时才去拉车辆列表，
// 未登录渲染锁定态，零库存请求。
type Pages struct {
	Inv Inventory
	Log *zap.Logger
}

func NewPages(inv Inventory, log *zap.Logger) *Pages {
	return &Pages{Inv: inv, Log: log}
}

func (h *Pages) Mount(r *gin.Engine) {
	r.GET("/", h.home)
}

func (h *Pages) home(c *gin.Context) {
	data := gin.H{
		"Flash":   flash.Take(c),
		"Email":   "",
		"IsAdmin": false,
		"Cars":    []carapi.Car(nil),
	}

	sess := mdw.Session(c)
	if sess == nil {
		c.HTML(http.StatusOK, "home.html", data)
		return
	}

	data["Email"] = sess.Email()
	data["IsAdmin"] = sess.Role() == "admin"

	cars, err := h.Inv.GetAllCars(c.Request.Context())
	if err != nil {
		h.Log.Warn("fetch cars failed", zap.Error(err))
		data["Flash"] = &flash.Notice{Kind: flash.KindError, Message: "Failed to fetch cars. Please try again later."}
	} else {
		data["Cars"] = cars
	}
	c.HTML(http.StatusOK, "home.html", data)
}
