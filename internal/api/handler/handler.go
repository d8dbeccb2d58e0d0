package handler

import "github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Workday    *WorkdayHandler
	Task       *TaskHandler
	Closing    *ClosingHandler
	Correction *CorrectionHandler
	Catalog    *CatalogHandler
	Audit      *AuditHandler
	Export     *ExportHandler
	Health     *HealthHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, checks map[string]Check) *Handler {
	return &Handler{
		Workday:    NewWorkdayHandler(svc.Workday),
		Task:       NewTaskHandler(svc.Task),
		Closing:    NewClosingHandler(svc.Closing, svc.Review),
		Correction: NewCorrectionHandler(svc.Correction),
		Catalog:    NewCatalogHandler(svc.Catalog),
		Audit:      NewAuditHandler(svc.Audit),
		Export:     NewExportHandler(svc.Export),
		Health:     NewHealthHandler(checks),
	}
}
