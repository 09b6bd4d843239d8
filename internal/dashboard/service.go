// Package dashboard aggregates trading data for managers and the ceo.
package dashboard

import (
	"context"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Range narrows an aggregate to one branch and an inclusive YYYY-MM-DD
// date window. Zero values mean unbounded.
type Range struct {
	BranchID *uint
	From     string
	To       string
}

func (r Range) apply(q *gorm.DB, table string) *gorm.DB {
	if r.BranchID != nil {
		q = q.Where(table+".branch_id = ?", *r.BranchID)
	}
	if r.From != "" {
		q = q.Where(table+".date >= ?", r.From)
	}
	if r.To != "" {
		q = q.Where(table+".date <= ?", r.To)
	}
	return q
}

type ProduceSales struct {
	ProduceID    uint            `json:"produce_id"`
	ProduceName  string          `json:"produce_name"`
	SaleCount    int64           `json:"sale_count"`
	TotalTonnage decimal.Decimal `json:"total_tonnage"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

func (s *Service) SalesByProduce(ctx context.Context, r Range) ([]ProduceSales, error) {
	q := s.db.WithContext(ctx).Table("sales").
		Select("sales.produce_id, produces.name AS produce_name, COUNT(*) AS sale_count, " +
			"COALESCE(SUM(sales.tonnage), 0) AS total_tonnage, COALESCE(SUM(sales.amount_paid), 0) AS total_amount").
		Joins("JOIN produces ON produces.id = sales.produce_id")
	q = r.apply(q, "sales").Group("sales.produce_id, produces.name").Order("produces.name")

	out := []ProduceSales{}
	if err := q.Scan(&out).Error; err != nil {
		return nil, apperr.Storage("aggregate sales", err)
	}
	return out, nil
}

type StockLevel struct {
	ProduceID     uint            `json:"produce_id"`
	ProduceName   string          `json:"produce_name"`
	BranchCount   int64           `json:"branch_count"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
}

func (s *Service) StockLevels(ctx context.Context, branchID *uint) ([]StockLevel, error) {
	q := s.db.WithContext(ctx).Table("stocks").
		Select("stocks.produce_id, produces.name AS produce_name, COUNT(*) AS branch_count, " +
			"COALESCE(SUM(stocks.quantity), 0) AS total_quantity").
		Joins("JOIN produces ON produces.id = stocks.produce_id")
	if branchID != nil {
		q = q.Where("stocks.branch_id = ?", *branchID)
	}
	out := []StockLevel{}
	if err := q.Group("stocks.produce_id, produces.name").Order("produces.name").Scan(&out).Error; err != nil {
		return nil, apperr.Storage("aggregate stock", err)
	}
	return out, nil
}

type MonthlyProcurement struct {
	Month        string          `json:"month"`
	Count        int64           `json:"count"`
	TotalTonnage decimal.Decimal `json:"total_tonnage"`
	TotalCost    decimal.Decimal `json:"total_cost"`
}

func (s *Service) ProcurementsByMonth(ctx context.Context, r Range) ([]MonthlyProcurement, error) {
	q := s.db.WithContext(ctx).Table("procurements").
		Select("SUBSTR(procurements.date, 1, 7) AS month, COUNT(*) AS count, " +
			"COALESCE(SUM(procurements.tonnage), 0) AS total_tonnage, COALESCE(SUM(procurements.cost), 0) AS total_cost")
	q = r.apply(q, "procurements").Group("SUBSTR(procurements.date, 1, 7)").Order("month")

	out := []MonthlyProcurement{}
	if err := q.Scan(&out).Error; err != nil {
		return nil, apperr.Storage("aggregate procurements", err)
	}
	return out, nil
}

type CreditStatus struct {
	Status       models.CreditSaleStatus `json:"status"`
	Count        int64                   `json:"count"`
	TotalTonnage decimal.Decimal         `json:"total_tonnage"`
	TotalDue     decimal.Decimal         `json:"total_due"`
}

func (s *Service) CreditSalesByStatus(ctx context.Context, branchID *uint) ([]CreditStatus, error) {
	q := s.db.WithContext(ctx).Table("credit_sales").
		Select("status, COUNT(*) AS count, COALESCE(SUM(tonnage), 0) AS total_tonnage, " +
			"COALESCE(SUM(amount_due), 0) AS total_due")
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}
	out := []CreditStatus{}
	if err := q.Group("status").Order("status").Scan(&out).Error; err != nil {
		return nil, apperr.Storage("aggregate credit sales", err)
	}
	return out, nil
}

// Sales loads sale rows with their names for the spreadsheet export.
func (s *Service) Sales(ctx context.Context, r Range) ([]models.Sale, error) {
	q := s.db.WithContext(ctx).Model(&models.Sale{}).
		Preload("Produce").Preload("Branch").Preload("Agent")
	var rows []models.Sale
	if err := r.apply(q, "sales").Order("date, time, id").Find(&rows).Error; err != nil {
		return nil, apperr.Storage("load sales", err)
	}
	return rows, nil
}
