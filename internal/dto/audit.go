package dto

// ── 一致性巡检 ──

// AuditAnomaly 单条巡检异常
type AuditAnomaly struct {
	Kind       string   `json:"kind"`
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id"`
	Expected   *float64 `json:"expected,omitempty"`
	Actual     *float64 `json:"actual,omitempty"`
	Detail     string   `json:"detail"`
}

// AuditReport 巡检报告（只读，仅供参考）
type AuditReport struct {
	RunAt        string         `json:"run_at"`
	DurationMs   int64          `json:"duration_ms"`
	NodesChecked int            `json:"nodes_checked"`
	TasksChecked int            `json:"tasks_checked"`
	Anomalies    []AuditAnomaly `json:"anomalies"`
}
