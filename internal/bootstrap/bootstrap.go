// Package bootstrap 组装 HTTP 服务与巡检 CLI 共用的基础设施
package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/config"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/service"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/database"
	applogger "github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/logger"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/notify"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/redis"
)

// App 已初始化的依赖
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client // 未启用或连接失败时为 nil
	Repo   *repository.Repository
	Svc    *service.Service
}

// LoadConfig 先加载 .env（可选），再按 默认值 → 配置文件 → GYS_ 环境变量 读取配置
func LoadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}
	return config.Load(path)
}

// New 连接数据库并执行迁移，尝试连接 Redis，组装 Repository 与 Service
func New(cfg *config.Config) (*App, error) {
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, &cfg.Log, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	// Redis 可选：连接失败时降级运行
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、闭合限流与巡检报告缓存不可用", zap.Error(err))
		rdb = nil
	}

	// 接口变量不能持有 nil 指针
	var cache service.ReportCache
	if rdb != nil {
		cache = rdb
	}

	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, cache, notify.NewSlackNotifier(cfg.Audit.SlackWebhookURL), logger)

	return &App{Config: cfg, Logger: logger, DB: db, Redis: rdb, Repo: repo, Svc: svc}, nil
}

// Close 释放数据库与 Redis 连接
func (a *App) Close() {
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	_ = a.Logger.Sync()
}
