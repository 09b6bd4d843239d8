package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

type AuditLog struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	BranchID *uint `gorm:"index"`
	UserID   uint  `gorm:"index"`

	// sale, stock, procurement, credit_sale, branch, produce, user
	EntityType string `gorm:"size:50;index"`
	EntityID   uint   `gorm:"index"`

	Action      AuditAction `gorm:"size:20"`
	Description string      `gorm:"size:255"`

	BeforeData datatypes.JSON
	AfterData  datatypes.JSON
}
