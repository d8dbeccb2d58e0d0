package model

// 身份服务下发的角色
const (
	RoleAdmin      = "admin"      // 系统管理员：删除、修正、巡检
	RoleSupervisor = "supervisor" // 项目监理：审批
	RoleForeman    = "foreman"    // 现场班组长：开工、填报、闭合
)
