package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"car-showcase/internal/adminform"
	"car-showcase/internal/identity"
	"car-showcase/internal/session"
	"car-showcase/internal/transport/http/flash"
	mdw "car-showcase/internal/transport/http/middleware"
)

// Auth 登录/注册/登出页面。凭据只转发给身份提供方，本地不存。
type Auth struct {
	Store *session.Store
	Forms *adminform.Controller
	Log   *zap.Logger
}

func NewAuth(store *session.Store, forms *adminform.Controller, log *zap.Logger) *Auth {
	return &Auth{Store: store, Forms: forms, Log: log}
}

func (h *Auth) Mount(r *gin.Engine) {
	r.GET("/login", h.loginPage)
	r.POST("/login", h.login)
	r.GET("/signup", h.signupPage)
	r.POST("/signup", h.signup)
	r.POST("/logout", h.logout)
}

func (h *Auth) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Flash": flash.Take(c), "Email": "", "Error": ""})
}

func (h *Auth) login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	if email == "" || password == "" {
		c.HTML(http.StatusOK, "login.html", gin.H{"Email": email, "Error": "Email and password are required"})
		return
	}

	sess, err := h.Store.SignIn(c.Request.Context(), mdw.SID(c), email, password)
	if err != nil {
		// 预期内失败（坏凭据等）原样透出，传输错误只给通用提示
		if ae, ok := identity.AsAuthError(err); ok {
			c.HTML(http.StatusOK, "login.html", gin.H{"Email": email, "Error": ae.Message})
			return
		}
		h.Log.Warn("sign-in failed", zap.Error(err))
		c.HTML(http.StatusOK, "login.html", gin.H{"Email": email, "Error": "An unexpected error occurred"})
		return
	}

	if sess.Role() == "admin" {
		flash.Success(c, "Welcome Admin! Redirecting to dashboard...")
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	flash.Success(c, "Welcome back!")
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Auth) signupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{"Flash": flash.Take(c), "Email": "", "Error": ""})
}

func (h *Auth) signup(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	confirm := c.PostForm("confirmPassword")
	role := c.PostForm("role")
	if role == "" {
		role = "user"
	}

	// 校验错误在发请求前拦下
	renderErr := func(msg string) {
		c.HTML(http.StatusOK, "signup.html", gin.H{"Email": email, "Error": msg})
	}
	if email == "" || password == "" {
		renderErr("Email and password are required")
		return
	}
	if password != confirm {
		renderErr("Passwords do not match")
		return
	}
	if len(password) < 6 {
		renderErr("Password must be at least 6 characters")
		return
	}

	if _, err := h.Store.SignUp(c.Request.Context(), mdw.SID(c), email, password, role); err != nil {
		if ae, ok := identity.AsAuthError(err); ok {
			renderErr(ae.Message)
			return
		}
		h.Log.Warn("sign-up failed", zap.Error(err))
		renderErr("An unexpected error occurred")
		return
	}

	flash.Success(c, "Account created! Please sign in.")
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Auth) logout(c *gin.Context) {
	sid := mdw.SID(c)
	if err := h.Store.SignOut(c.Request.Context(), sid); err != nil {
		h.Log.Warn("sign-out failed", zap.Error(err))
	}
	if h.Forms != nil {
		h.Forms.Drop(sid)
	}
	c.Redirect(http.StatusSeeOther, "/")
}
