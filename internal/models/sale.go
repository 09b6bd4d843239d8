package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Sale struct {
	ID            uint            `gorm:"primaryKey"`
	ReceiptNumber string          `gorm:"size:40;uniqueIndex;not null"`
	ProduceID     uint            `gorm:"index;not null"`
	Produce       *Produce        `gorm:"foreignKey:ProduceID"`
	BranchID      uint            `gorm:"index;not null"`
	Branch        *Branch         `gorm:"foreignKey:BranchID"`
	AgentID       uint            `gorm:"index;not null"`
	Agent         *User           `gorm:"foreignKey:AgentID"`
	BuyerName     string          `gorm:"size:100;not null"`
	BuyerContact  string          `gorm:"size:20;not null"`
	Tonnage       decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Date          string          `gorm:"size:10;index;not null"`
	Time          string          `gorm:"size:5;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
