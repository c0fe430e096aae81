package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"car-showcase/internal/adminform"
	"car-showcase/internal/carapi"
	"car-showcase/internal/core/auth"
	"car-showcase/internal/core/config"
	"car-showcase/internal/core/logger"
	"car-showcase/internal/core/server"
	"car-showcase/internal/identity"
	"car-showcase/internal/session"
	"car-showcase/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	// 身份提供方客户端（注册/登录/刷新全部委托给对端）
	idp := identity.NewClient(
		cfg.Identity.URL,
		cfg.Identity.AnonKey,
		time.Duration(cfg.Identity.TimeoutSec)*time.Second,
		log,
	)

	// 会话存储
	backend := buildBackend(cfg, log)
	sessionTTL := time.Duration(cfg.Session.TTLMin) * time.Minute
	store := session.NewStore(idp, backend, sessionTTL, log)
	if cfg.Identity.JWTSecret != "" {
		store.WithVerifier(&auth.Verifier{Secret: []byte(cfg.Identity.JWTSecret)})
	}

	// 启动时订阅会话变更，退出时注销
	unsubscribe := store.Subscribe(func(e session.Event) {
		log.Info("session change",
			zap.String("kind", string(e.Kind)),
			zap.String("email", e.Session.Email()),
		)
	})
	defer unsubscribe()

	// 库存 API 客户端，发请求时从请求 context 取 bearer token
	api := carapi.NewClient(
		cfg.CarAPI.BaseURL,
		time.Duration(cfg.CarAPI.TimeoutSec)*time.Second,
		session.TokenFromContext,
		log,
	)

	forms := adminform.NewController(api, log)

	r := router.New(router.Deps{
		Log:        log,
		Store:      store,
		API:        api,
		Forms:      forms,
		CookieName: cfg.Session.CookieName,
		SessionTTL: sessionTTL,
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("web starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("car_api", cfg.CarAPI.BaseURL),
		zap.String("identity", cfg.Identity.URL),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("web start FAILED", zap.Error(err))
		}
	}()
	log.Info("web started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("web stopped gracefully")
}

func buildBackend(cfg *config.Config, l *zap.Logger) session.Backend {
	if cfg.Session.Backend == "redis" {
		l.Info("session backend: redis", zap.String("addr", cfg.Redis.Addr))
		return session.NewRedisBackend(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}
	l.Info("session backend: memory")
	return session.NewMemoryBackend()
}
