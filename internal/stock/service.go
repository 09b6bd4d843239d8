package stock

import (
	"context"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/audit"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/notify"
	"gcdl-backend/internal/validation"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service performs administrative stock adjustments: each one is a ledger
// write plus an audit entry in one transaction, followed by a notification.
type Service struct {
	db       *gorm.DB
	ledger   *Ledger
	notifier notify.Broadcaster
}

func NewService(db *gorm.DB, ledger *Ledger, notifier notify.Broadcaster) *Service {
	return &Service{db: db, ledger: ledger, notifier: notifier}
}

func (s *Service) Ledger() *Ledger { return s.ledger }

type AdjustInput struct {
	ProduceID uint            `json:"produce_id" validate:"required"`
	BranchID  *uint           `json:"branch_id"`
	Quantity  decimal.Decimal `json:"quantity" validate:"scale=3"`
}

// RequireProduce loads a produce or fails with NotFound.
func RequireProduce(ctx context.Context, db *gorm.DB, id uint) (*models.Produce, error) {
	var p models.Produce
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, apperr.FromDB(err, "produce not found")
	}
	return &p, nil
}

// RequireBranch loads a branch or fails with NotFound.
func RequireBranch(ctx context.Context, db *gorm.DB, id uint) (*models.Branch, error) {
	var b models.Branch
	if err := db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, apperr.FromDB(err, "branch not found")
	}
	return &b, nil
}

type ledgerOp func(l *Ledger, produceID, branchID uint, qty decimal.Decimal) (*models.Stock, error)

func (s *Service) adjust(ctx context.Context, who auth.Identity, in AdjustInput, desc string, op ledgerOp) (*models.Stock, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	who, _, err := auth.Refresh(ctx, s.db, who)
	if err != nil {
		return nil, err
	}
	branchID, err := who.TargetBranch(in.BranchID)
	if err != nil {
		return nil, err
	}
	if _, err := RequireProduce(ctx, s.db, in.ProduceID); err != nil {
		return nil, err
	}
	if _, err := RequireBranch(ctx, s.db, branchID); err != nil {
		return nil, err
	}

	var out *models.Stock
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l := s.ledger.WithTx(tx)
		before, err := l.Quantity(ctx, in.ProduceID, branchID)
		if err != nil {
			return err
		}
		out, err = op(l, in.ProduceID, branchID, in.Quantity)
		if err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &branchID,
			UserID:      who.UserID,
			EntityType:  "stock",
			EntityID:    out.ID,
			Action:      models.AuditActionUpdate,
			Description: desc,
			Before:      map[string]any{"quantity": before},
			After:       map[string]any{"quantity": out.Quantity},
		})
	})
	if err != nil {
		return nil, apperr.FromDB(err, "")
	}
	s.notifier.Broadcast(notify.EntityStock)
	return out, nil
}

// StockIn adds tonnage that arrived outside a procurement.
func (s *Service) StockIn(ctx context.Context, who auth.Identity, in AdjustInput) (*models.Stock, error) {
	return s.adjust(ctx, who, in, "manual stock-in", func(l *Ledger, p, b uint, q decimal.Decimal) (*models.Stock, error) {
		return l.UpsertIncrease(ctx, p, b, q)
	})
}

// Reduce removes tonnage outside a sale, failing on shortage.
func (s *Service) Reduce(ctx context.Context, who auth.Identity, in AdjustInput) (*models.Stock, error) {
	return s.adjust(ctx, who, in, "manual stock reduction", func(l *Ledger, p, b uint, q decimal.Decimal) (*models.Stock, error) {
		return l.Decrease(ctx, p, b, q)
	})
}

// Set overwrites the tonnage for a (produce, branch) pair.
func (s *Service) Set(ctx context.Context, who auth.Identity, in AdjustInput) (*models.Stock, error) {
	return s.adjust(ctx, who, in, "stock count override", func(l *Ledger, p, b uint, q decimal.Decimal) (*models.Stock, error) {
		return l.SetAbsolute(ctx, p, b, q)
	})
}

// SetByID overwrites the tonnage of an existing row.
func (s *Service) SetByID(ctx context.Context, who auth.Identity, stockID uint, qty decimal.Decimal) (*models.Stock, error) {
	who, _, err := auth.Refresh(ctx, s.db, who)
	if err != nil {
		return nil, err
	}
	var out *models.Stock
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before models.Stock
		if err := tx.First(&before, stockID).Error; err != nil {
			return apperr.FromDB(err, "stock record not found")
		}
		if who.BranchID != nil && !who.SeesAllBranches() && *who.BranchID != before.BranchID {
			return apperr.Forbidden("stock belongs to another branch")
		}
		var err error
		out, err = s.ledger.WithTx(tx).SetByID(ctx, stockID, qty)
		if err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &before.BranchID,
			UserID:      who.UserID,
			EntityType:  "stock",
			EntityID:    stockID,
			Action:      models.AuditActionUpdate,
			Description: "stock count override",
			Before:      map[string]any{"quantity": before.Quantity},
			After:       map[string]any{"quantity": out.Quantity},
		})
	})
	if err != nil {
		return nil, apperr.FromDB(err, "")
	}
	s.notifier.Broadcast(notify.EntityStock)
	return out, nil
}

// Remove deletes a stock row.
func (s *Service) Remove(ctx context.Context, who auth.Identity, stockID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before models.Stock
		if err := tx.First(&before, stockID).Error; err != nil {
			return apperr.FromDB(err, "stock record not found")
		}
		if err := s.ledger.WithTx(tx).Remove(ctx, stockID); err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &before.BranchID,
			UserID:      who.UserID,
			EntityType:  "stock",
			EntityID:    stockID,
			Action:      models.AuditActionDelete,
			Description: "stock record removed",
			Before:      before,
		})
	})
	if err != nil {
		return apperr.FromDB(err, "")
	}
	s.notifier.Broadcast(notify.EntityStock)
	return nil
}
