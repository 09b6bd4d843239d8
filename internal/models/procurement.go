package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Procurement struct {
	ID            uint            `gorm:"primaryKey"`
	ProduceID     uint            `gorm:"index;not null"`
	Produce       *Produce        `gorm:"foreignKey:ProduceID"`
	BranchID      uint            `gorm:"index;not null"`
	Branch        *Branch         `gorm:"foreignKey:BranchID"`
	Type          string          `gorm:"size:50;not null"`
	DealerName    string          `gorm:"size:100;not null"`
	DealerContact string          `gorm:"size:20;not null"`
	Tonnage       decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Cost          decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Date          string          `gorm:"size:10;index;not null"` // YYYY-MM-DD
	Time          string          `gorm:"size:5;not null"`        // HH:MM
	RecordedBy    uint            `gorm:"index;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
