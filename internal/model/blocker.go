package model

import "gorm.io/gorm"

// BlockerType 阻碍类型字典，对应 blocker_types
type BlockerType struct {
	BlockerTypeID string `gorm:"type:uuid;primaryKey"                      json:"blocker_type_id"`
	Code          string `gorm:"type:varchar(40);not null;uniqueIndex"     json:"code"` // weather | material | equipment | permit | safety | other
	Name          string `gorm:"type:varchar(100);not null"                json:"name"`
	IsActive      bool   `gorm:"not null;default:true"                     json:"is_active"`
	BaseModel
}

func (BlockerType) TableName() string { return "blocker_types" }

func (b *BlockerType) BeforeCreate(_ *gorm.DB) error {
	ensureID(&b.BlockerTypeID)
	return nil
}

// Blocker 工作日阻碍记录，对应 workday_blockers
type Blocker struct {
	BlockerID     string `gorm:"type:uuid;primaryKey"     json:"blocker_id"`
	WorkdayID     string `gorm:"type:uuid;not null;index" json:"workday_id"`
	BlockerTypeID string `gorm:"type:uuid;not null"       json:"blocker_type_id"`
	Description   string `gorm:"type:text;not null"       json:"description"`
	ImpactNote    string `gorm:"type:text"                json:"impact_note,omitempty"`
	BaseModel

	// 关联
	BlockerType *BlockerType `gorm:"foreignKey:BlockerTypeID;references:BlockerTypeID" json:"blocker_type,omitempty"`
}

func (Blocker) TableName() string { return "workday_blockers" }

func (b *Blocker) BeforeCreate(_ *gorm.DB) error {
	ensureID(&b.BlockerID)
	return nil
}
