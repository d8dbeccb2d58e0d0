package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/config"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/api/handler"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/api/middleware"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/jwt"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/redis"
)

const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时跳过 Token 黑名单检查与闭合限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", h.Health.Health)

	admin := middleware.RoleAuth(model.RoleAdmin)
	reviewer := middleware.RoleAuth(model.RoleAdmin, model.RoleSupervisor)
	closeLimit := middleware.RateLimit(rdb, cfg.Server.CloseRateLimit, time.Minute)

	// ── API v1（均需认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb))
	{
		// 工作日
		workdays := v1.Group("/workdays")
		{
			workdays.POST("", h.Workday.OpenWorkday)
			workdays.GET("", h.Workday.ListWorkdays)
			workdays.GET("/:id", h.Workday.GetWorkday)
			workdays.DELETE("/:id", admin, h.Workday.DeleteWorkday)
			workdays.POST("/:id/tasks", h.Task.AddTask)
			workdays.GET("/:id/allocation", h.Task.SuggestAllocation)
			workdays.POST("/:id/allocation/apply", h.Task.ApplyDefaultHours)
			workdays.POST("/:id/blockers", h.Workday.AddBlocker)
			workdays.POST("/:id/close", closeLimit, h.Closing.CloseWorkday)
			workdays.POST("/:id/review", reviewer, h.Closing.ReviewWorkday)
			workdays.GET("/:id/export", h.Export.ExportWorkday)
		}

		// 任务与成员工时
		tasks := v1.Group("/tasks")
		{
			tasks.PATCH("/:id", h.Task.UpdateTask)
			tasks.DELETE("/:id", h.Task.RemoveTask)
			tasks.POST("/:id/members", h.Task.AddMember)
		}
		members := v1.Group("/members")
		{
			members.DELETE("/:id", h.Task.RemoveMember)
			members.PUT("/:id/hours", h.Task.SetMemberHours)
		}
		v1.DELETE("/blockers/:id", h.Workday.RemoveBlocker)
		v1.GET("/calendar/workdays.ics", h.Export.ExportCalendar)

		// 已提交台账修正（仅管理员）
		corrections := v1.Group("/corrections", admin)
		{
			corrections.PUT("/members/:id/hours", h.Correction.CorrectMemberHours)
			corrections.DELETE("/tasks/:id", h.Correction.DeleteTaskCorrection)
		}

		// 字典与进度节点
		v1.GET("/blocker-types", h.Catalog.ListBlockerTypes)
		nodes := v1.Group("/schedule-nodes")
		{
			nodes.GET("/:id", h.Catalog.GetScheduleNode)
			nodes.POST("/:id/recompute", admin, h.Correction.RecomputeNode)
		}

		// 一致性巡检
		audit := v1.Group("/audit", admin)
		{
			audit.POST("/run", h.Audit.RunAudit)
			audit.GET("/report", h.Audit.GetLatestReport)
		}
	}

	return r
}
