package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is the current tonnage of one produce at one branch. The
// (produce_id, branch_id) pair is unique and quantity never goes negative.
type Stock struct {
	ID        uint            `gorm:"primaryKey"`
	ProduceID uint            `gorm:"not null;uniqueIndex:idx_stocks_produce_branch"`
	Produce   *Produce        `gorm:"foreignKey:ProduceID"`
	BranchID  uint            `gorm:"not null;uniqueIndex:idx_stocks_produce_branch;index"`
	Branch    *Branch         `gorm:"foreignKey:BranchID"`
	Quantity  decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0;check:chk_stocks_quantity,quantity >= 0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
