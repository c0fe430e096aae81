package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"car-showcase/internal/adminform"
	"car-showcase/internal/carapi"
	"car-showcase/internal/transport/http/flash"
	mdw "car-showcase/internal/transport/http/middleware"
)

// Admin 管理端：车辆表格 + 单车编辑表单。
// 所有变更走 PRG，提交成功后列表在下一次 GET 重新从服务端拉取。
type Admin struct {
	Inv   Inventory
	Forms *adminform.Controller
	Log   *zap.Logger
}

func NewAdmin(inv Inventory, forms *adminform.Controller, log *zap.Logger) *Admin {
	return &Admin{Inv: inv, Forms: forms, Log: log}
}

func (h *Admin) Mount(r *gin.Engine, guards ...gin.HandlerFunc) {
	g := r.Group("/admin")
	g.Use(guards...)
	g.GET("", h.dashboard)
	g.POST("/cars/new", h.newForm)
	g.POST("/cars/:id/edit", h.editForm)
	g.POST("/cars/:id/delete", h.deleteCar)
	g.POST("/form/cancel", h.cancelForm)
	g.POST("/form/features", h.addFeature)
	g.POST("/form/features/:index/remove", h.removeFeature)
	g.POST("/form/image", h.uploadImage)
	g.POST("/form/submit", h.submitForm)
}

func (h *Admin) dashboard(c *gin.Context) {
	data := gin.H{
		"Flash":         flash.Take(c),
		"Email":         mdw.Session(c).Email(),
		"Cars":          []carapi.Car(nil),
		"Draft":         h.Forms.Draft(mdw.SID(c)),
		"ConfirmDelete": int64(0),
	}
	if v, err := strconv.ParseInt(c.Query("confirm"), 10, 64); err == nil {
		data["ConfirmDelete"] = v
	}

	cars, err := h.Inv.GetAllCars(c.Request.Context())
	if err != nil {
		h.Log.Warn("fetch cars failed", zap.Error(err))
		data["Flash"] = &flash.Notice{Kind: flash.KindError, Message: "Failed to fetch cars"}
	} else {
		data["Cars"] = cars
	}
	c.HTML(http.StatusOK, "admin.html", data)
}

func (h *Admin) newForm(c *gin.Context) {
	h.Forms.Open(mdw.SID(c))
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h *Admin) editForm(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		flash.Error(c, "Invalid car id")
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	if err := h.Forms.Edit(c.Request.Context(), mdw.SID(c), id); err != nil {
		flash.Error(c, failMessage(err, "Failed to load car"))
	}
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h *Admin) cancelForm(c *gin.Context) {
	h.Forms.Close(mdw.SID(c))
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h *Admin) addFeature(c *gin.Context) {
	h.Forms.AddFeature(mdw.SID(c), c.PostForm("feature"))
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h *Admin) removeFeature(c *gin.Context) {
	if i, err := strconv.Atoi(c.Param("index")); err == nil {
		h.Forms.RemoveFeature(mdw.SID(c), i)
	}
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h *Admin) uploadImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		flash.Error(c, "No file selected")
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	f, err := fh.Open()
	if err != nil {
		flash.Error(c, "Failed to read file")
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	defer f.Close()

	if _, err := h.Forms.Upload(c.Request.Context(), mdw.SID(c), fh.Filename, f); err != nil {
		switch err {
		case adminform.ErrUploadInFlight:
			flash.Error(c, "An upload is already in progress")
		case adminform.ErrNoForm:
			flash.Error(c, "Open the form before uploading")
		default:
			h.Log.Warn("image upload failed", zap.Error(err))
			flash.Error(c, "Failed to upload image")
		}
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	flash.Success(c, "Image uploaded successfully")
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h *Admin) submitForm(c *gin.Context) {
	fields := adminform.Fields{
		Name:           c.PostForm("name"),
		Brand:          c.PostForm("brand"),
		Model:          c.PostForm("model"),
		Description:    c.PostForm("description"),
		Color:          c.PostForm("color"),
		FuelType:       c.PostForm("fuelType"),
		Transmission:   c.PostForm("transmission"),
		EngineCapacity: c.PostForm("engineCapacity"),
		Status:         c.PostForm("status"),
	}
	fields.Year, _ = strconv.Atoi(c.PostForm("year"))
	fields.Seats, _ = strconv.Atoi(c.PostForm("seats"))
	fields.Mileage, _ = strconv.ParseInt(c.PostForm("mileage"), 10, 64)
	fields.Price, _ = strconv.ParseFloat(c.PostForm("price"), 64)

	wasEditing := h.Forms.Draft(mdw.SID(c)).State == adminform.StateEditing

	if _, err := h.Forms.Submit(c.Request.Context(), mdw.SID(c), fields); err != nil {
		// 失败时草稿保持打开，当前编辑内容保留，用户可以重试
		flash.Error(c, failMessage(err, "Failed to save car"))
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	if wasEditing {
		flash.Success(c, "Car updated successfully")
	} else {
		flash.Success(c, "Car added successfully")
	}
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h *Admin) deleteCar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		flash.Error(c, "Invalid car id")
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	// 明确的确认步骤：第一次点删除只展示确认按钮
	if c.PostForm("confirm") != "yes" {
		c.Redirect(http.StatusSeeOther, "/admin?confirm="+strconv.FormatInt(id, 10))
		return
	}
	if err := h.Inv.DeleteCar(c.Request.Context(), id); err != nil {
		h.Log.Warn("delete car failed", zap.Int64("id", id), zap.Error(err))
		flash.Error(c, failMessage(err, "Failed to delete car"))
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	flash.Success(c, "Car deleted successfully")
	c.Redirect(http.StatusSeeOther, "/admin")
}

// failMessage 服务端给了错误消息就透出，否则用兜底文案
func failMessage(err error, fallback string) string {
	if msg := carapi.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}
