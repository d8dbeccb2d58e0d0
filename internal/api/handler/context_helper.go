package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/response"
)

// MustGetUserID 从 Gin 上下文中提取操作人 user_id。
// JWT 中间件未注入时写入 401 响应，调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	uid := c.GetString("user_id")
	if uid == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return uid, true
}

// GetCrewID 班组长 Token 携带所属班组；其他角色为空
func GetCrewID(c *gin.Context) string {
	return c.GetString("crew_id")
}

// scopeToCrew 班组长未指定 crew_id 时默认只看本班组
func scopeToCrew(c *gin.Context, req *dto.ListWorkdaysRequest) {
	if req.CrewID == "" && c.GetString("role") == model.RoleForeman {
		req.CrewID = GetCrewID(c)
	}
}
