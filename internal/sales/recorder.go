// Package sales records cash sales. A sale and its stock decrease commit
// together or not at all.
package sales

import (
	"context"
	"fmt"
	"strings"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/audit"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/notify"
	"gcdl-backend/internal/observability"
	"gcdl-backend/internal/rbac"
	"gcdl-backend/internal/stock"
	"gcdl-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type Recorder struct {
	db       *gorm.DB
	ledger   *stock.Ledger
	table    *rbac.Table
	notifier notify.Broadcaster
}

func NewRecorder(db *gorm.DB, ledger *stock.Ledger, table *rbac.Table, notifier notify.Broadcaster) *Recorder {
	return &Recorder{db: db, ledger: ledger, table: table, notifier: notifier}
}

// RecordSaleInput is the payload of POST /api/sales. The selling agent is
// always the caller.
type RecordSaleInput struct {
	ProduceID    uint            `json:"produce_id" validate:"required"`
	Tonnage      decimal.Decimal `json:"tonnage" validate:"gt=0,scale=3"`
	AmountPaid   decimal.Decimal `json:"amount_paid" validate:"gte=0,scale=2"`
	BuyerName    string          `json:"buyer_name" validate:"required,min=2,max=100"`
	BuyerContact string          `json:"buyer_contact" validate:"required,ugphone"`
	Date         string          `json:"date" validate:"required,ymd"`
	Time         string          `json:"time" validate:"required,hhmm"`
	BranchID     *uint           `json:"branch_id"`
}

// Receipt is what the buyer takes away.
type Receipt struct {
	ReceiptNumber  string          `json:"receipt_number"`
	SaleID         uint            `json:"sale_id"`
	ProduceName    string          `json:"produce_name"`
	ProduceType    string          `json:"produce_type"`
	BranchName     string          `json:"branch_name"`
	AgentName      string          `json:"agent_name"`
	BuyerName      string          `json:"buyer_name"`
	BuyerContact   string          `json:"buyer_contact"`
	Tonnage        decimal.Decimal `json:"tonnage"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	RemainingStock decimal.Decimal `json:"remaining_stock"`
}

func newReceiptNumber(date string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("RCT-%s-%s", strings.ReplaceAll(date, "-", ""), id[:10])
}

// Record validates the sale, decreases stock and stores the sale in one
// transaction. A shortage leaves no trace.
func (r *Recorder) Record(ctx context.Context, who auth.Identity, in RecordSaleInput) (*Receipt, error) {
	ctx, span := observability.Tracer().Start(ctx, "sales.record")
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	produce, err := stock.RequireProduce(ctx, r.db, in.ProduceID)
	if err != nil {
		return nil, err
	}
	who, agent, err := auth.Refresh(ctx, r.db, who)
	if err != nil {
		return nil, err
	}
	branchID, err := who.ResolveBranch(in.BranchID)
	if err != nil {
		return nil, err
	}
	branch, err := stock.RequireBranch(ctx, r.db, branchID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("produce_id", int64(produce.ID)),
		attribute.Int64("branch_id", int64(branchID)),
	)

	var (
		sale      models.Sale
		remaining *models.Stock
	)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		remaining, err = r.ledger.WithTx(tx).Decrease(ctx, produce.ID, branchID, in.Tonnage)
		if err != nil {
			return err
		}
		sale = models.Sale{
			ReceiptNumber: newReceiptNumber(in.Date),
			ProduceID:     produce.ID,
			BranchID:      branchID,
			AgentID:       who.UserID,
			BuyerName:     strings.TrimSpace(in.BuyerName),
			BuyerContact:  in.BuyerContact,
			Tonnage:       in.Tonnage,
			AmountPaid:    in.AmountPaid,
			Date:          in.Date,
			Time:          in.Time,
		}
		if err := tx.Create(&sale).Error; err != nil {
			return apperr.FromDB(err, "")
		}
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &branchID,
			UserID:      who.UserID,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("sold %s tons of %s", in.Tonnage, produce.Name),
			After:       NewSaleResponse(&sale),
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperr.FromDB(err, "")
	}

	r.notifier.Broadcast(notify.EntitySales)
	r.notifier.Broadcast(notify.EntityStock)

	return &Receipt{
		ReceiptNumber:  sale.ReceiptNumber,
		SaleID:         sale.ID,
		ProduceName:    produce.Name,
		ProduceType:    produce.Type,
		BranchName:     branch.Name,
		AgentName:      agent.Username,
		BuyerName:      sale.BuyerName,
		BuyerContact:   sale.BuyerContact,
		Tonnage:        sale.Tonnage,
		AmountPaid:     sale.AmountPaid,
		Date:           sale.Date,
		Time:           sale.Time,
		RemainingStock: remaining.Quantity,
	}, nil
}

type Filter struct {
	BranchID *uint
	AgentID  *uint
	Limit    int
	Offset   int
}

func (r *Recorder) seesAll(who auth.Identity) bool {
	return r.table.IsAllowed(who.Role, rbac.ViewAllSales)
}

func (r *Recorder) find(ctx context.Context, f Filter) ([]models.Sale, error) {
	q := r.db.WithContext(ctx).Preload("Produce").Preload("Branch").Preload("Agent")
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.AgentID != nil {
		q = q.Where("agent_id = ?", *f.AgentID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var rows []models.Sale
	if err := q.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, apperr.Storage("list sales", err)
	}
	return rows, nil
}

// List returns the sales the caller may see. Callers without the
// all-sales permission only ever get their own.
func (r *Recorder) List(ctx context.Context, who auth.Identity, f Filter) ([]models.Sale, error) {
	if !r.seesAll(who) {
		f.AgentID = &who.UserID
		f.BranchID = nil
	}
	return r.find(ctx, f)
}

func (r *Recorder) ListByAgent(ctx context.Context, who auth.Identity, agentID uint, f Filter) ([]models.Sale, error) {
	if !r.seesAll(who) && agentID != who.UserID {
		return nil, apperr.Forbidden("you can only view your own sales")
	}
	f.AgentID = &agentID
	return r.find(ctx, f)
}

func (r *Recorder) ListByBranch(ctx context.Context, who auth.Identity, branchID uint, f Filter) ([]models.Sale, error) {
	if !r.seesAll(who) {
		return nil, apperr.Forbidden("you are not allowed to view branch sales")
	}
	if _, err := stock.RequireBranch(ctx, r.db, branchID); err != nil {
		return nil, err
	}
	f.BranchID = &branchID
	return r.find(ctx, f)
}

func (r *Recorder) Get(ctx context.Context, who auth.Identity, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).Preload("Produce").Preload("Branch").Preload("Agent").First(&sale, id).Error
	if err != nil {
		return nil, apperr.FromDB(err, "sale not found")
	}
	if !r.seesAll(who) && sale.AgentID != who.UserID {
		return nil, apperr.Forbidden("you can only view your own sales")
	}
	return &sale, nil
}

// UpdateSaleInput changes buyer details or the amount paid. Tonnage is
// fixed once stock has moved.
type UpdateSaleInput struct {
	BuyerName    *string          `json:"buyer_name" validate:"omitempty,min=2,max=100"`
	BuyerContact *string          `json:"buyer_contact" validate:"omitempty,ugphone"`
	AmountPaid   *decimal.Decimal `json:"amount_paid" validate:"omitempty,scale=2"`
}

func (r *Recorder) Update(ctx context.Context, who auth.Identity, id uint, in UpdateSaleInput) (*models.Sale, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.AmountPaid != nil && in.AmountPaid.IsNegative() {
		return nil, apperr.Validation("amount_paid must be at least 0")
	}
	updates := map[string]any{}
	if in.BuyerName != nil {
		updates["buyer_name"] = strings.TrimSpace(*in.BuyerName)
	}
	if in.BuyerContact != nil {
		updates["buyer_contact"] = *in.BuyerContact
	}
	if in.AmountPaid != nil {
		updates["amount_paid"] = *in.AmountPaid
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("nothing to update")
	}

	var sale models.Sale
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sale, id).Error; err != nil {
			return apperr.FromDB(err, "sale not found")
		}
		before := NewSaleResponse(&sale)
		if err := tx.Model(&sale).Updates(updates).Error; err != nil {
			return apperr.FromDB(err, "")
		}
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &sale.BranchID,
			UserID:      who.UserID,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionUpdate,
			Description: "sale " + sale.ReceiptNumber + " updated",
			Before:      before,
			After:       NewSaleResponse(&sale),
		})
	})
	if err != nil {
		return nil, apperr.FromDB(err, "")
	}
	r.notifier.Broadcast(notify.EntitySales)
	return r.Get(ctx, who, id)
}

// Void deletes a sale and puts its tonnage back on the shelf.
func (r *Recorder) Void(ctx context.Context, who auth.Identity, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sale models.Sale
		if err := tx.First(&sale, id).Error; err != nil {
			return apperr.FromDB(err, "sale not found")
		}
		if err := tx.Delete(&sale).Error; err != nil {
			return apperr.FromDB(err, "")
		}
		if _, err := r.ledger.WithTx(tx).UpsertIncrease(ctx, sale.ProduceID, sale.BranchID, sale.Tonnage); err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &sale.BranchID,
			UserID:      who.UserID,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionDelete,
			Description: "sale " + sale.ReceiptNumber + " voided, stock restored",
			Before:      NewSaleResponse(&sale),
		})
	})
	if err != nil {
		return apperr.FromDB(err, "")
	}
	r.notifier.Broadcast(notify.EntitySales)
	r.notifier.Broadcast(notify.EntityStock)
	return nil
}
