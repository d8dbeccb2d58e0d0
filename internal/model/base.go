package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// SetActor 同时记录创建人与更新人
func (m *BaseModel) SetActor(userID string) {
	if userID == "" {
		return
	}
	if m.CreatedBy == nil {
		m.CreatedBy = &userID
	}
	m.UpdatedBy = &userID
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// ensureID 主键为空时生成 UUID。
// 主键在应用侧生成，不依赖 PostgreSQL gen_random_uuid()，测试库（SQLite）同样适用。
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
