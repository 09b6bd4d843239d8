package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreditSaleStatus string

const (
	CreditSalePending CreditSaleStatus = "pending"
	CreditSalePaid    CreditSaleStatus = "paid"
)

type CreditSale struct {
	ID         uint             `gorm:"primaryKey"`
	BuyerName  string           `gorm:"size:100;not null"`
	NationalID string           `gorm:"size:50;not null"`
	Location   string           `gorm:"size:255;not null"`
	ProduceID  uint             `gorm:"index;not null"`
	Produce    *Produce         `gorm:"foreignKey:ProduceID"`
	BranchID   uint             `gorm:"index;not null"`
	Branch     *Branch          `gorm:"foreignKey:BranchID"`
	AgentID    uint             `gorm:"index;not null"`
	Agent      *User            `gorm:"foreignKey:AgentID"`
	Tonnage    decimal.Decimal  `gorm:"type:decimal(14,3);not null"`
	AmountDue  decimal.Decimal  `gorm:"type:decimal(14,2);not null"`
	DueDate    string           `gorm:"size:10;index;not null"`
	Status     CreditSaleStatus `gorm:"size:20;not null;default:pending;index"`
	PaidAt     *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
