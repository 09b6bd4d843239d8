package audit

import (
	"encoding/json"
	"fmt"

	"gcdl-backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LogOptions struct {
	BranchID    *uint
	UserID      uint
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog records a mutation. Pass the transaction handle so the entry
// commits or rolls back together with the change it describes.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	before, err := snapshot(opts.Before)
	if err != nil {
		return err
	}
	after, err := snapshot(opts.After)
	if err != nil {
		return err
	}

	entry := models.AuditLog{
		BranchID:    opts.BranchID,
		UserID:      opts.UserID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  before,
		AfterData:   after,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// jsonb rejects an empty string, so absent snapshots are stored as null.
func snapshot(v any) (datatypes.JSON, error) {
	if v == nil {
		return datatypes.JSON("null"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	return datatypes.JSON(b), nil
}
