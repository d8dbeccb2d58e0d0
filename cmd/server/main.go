package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/api/handler"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/api/router"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/bootstrap"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/cronjob"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/jwt"
)

func main() {
	// 1. 加载配置
	cfg, err := bootstrap.LoadConfig(os.Getenv("GYS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 日志、数据库、迁移、Redis、Service
	app, err := bootstrap.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()
	logger := app.Logger

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 定时巡检
	var auditor *cronjob.Auditor
	if cfg.Audit.Enabled {
		auditor = cronjob.NewAuditor(&cfg.Audit, app.Svc.Audit, logger)
		if err := auditor.Start(); err != nil {
			logger.Fatal("启动巡检调度失败", zap.Error(err))
		}
	}

	// 4. Handler 与路由
	if err := handler.RegisterValidators(); err != nil {
		logger.Fatal("注册校验器失败", zap.Error(err))
	}
	checks := map[string]handler.Check{
		"db": func(ctx context.Context) error {
			sqlDB, err := app.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if app.Redis != nil {
		checks["redis"] = app.Redis.Ping
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	h := handler.NewHandler(app.Svc, checks)
	engine := router.Setup(cfg, h, jwtMgr, app.Redis, logger)

	// 5. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 6. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if auditor != nil {
		auditor.Stop()
	}

	logger.Info("服务器已关闭")
}
