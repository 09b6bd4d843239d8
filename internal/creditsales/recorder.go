// Package creditsales records produce handed to trusted buyers on credit
// and tracks repayment. Credit sales do not move stock.
package creditsales

import (
	"context"
	"strings"
	"time"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/audit"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/notify"
	"gcdl-backend/internal/stock"
	"gcdl-backend/internal/validation"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Recorder struct {
	db       *gorm.DB
	notifier notify.Broadcaster
	now      func() time.Time
}

func NewRecorder(db *gorm.DB, notifier notify.Broadcaster) *Recorder {
	return &Recorder{db: db, notifier: notifier, now: time.Now}
}

// WithClock replaces the clock used for due-date checks and payment stamps.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

type RecordInput struct {
	BuyerName  string          `json:"buyer_name" validate:"required,min=2,max=100"`
	NationalID string          `json:"national_id" validate:"required,max=50"`
	Location   string          `json:"location" validate:"required,min=2,max=255"`
	ProduceID  uint            `json:"produce_id" validate:"required"`
	Tonnage    decimal.Decimal `json:"tonnage" validate:"gte=0.1,scale=3"`
	AmountDue  decimal.Decimal `json:"amount_due" validate:"gt=0,scale=2"`
	DueDate    string          `json:"due_date" validate:"required,ymd"`
	BranchID   *uint           `json:"branch_id"`
}

func (r *Recorder) today() string {
	return r.now().UTC().Format("2006-01-02")
}

func (r *Recorder) Record(ctx context.Context, who auth.Identity, in RecordInput) (*models.CreditSale, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	// YYYY-MM-DD compares lexically in date order.
	if in.DueDate < r.today() {
		return nil, apperr.Validation("due_date must not be in the past")
	}
	produce, err := stock.RequireProduce(ctx, r.db, in.ProduceID)
	if err != nil {
		return nil, err
	}
	who, _, err = auth.Refresh(ctx, r.db, who)
	if err != nil {
		return nil, err
	}
	branchID, err := who.ResolveBranch(in.BranchID)
	if err != nil {
		return nil, err
	}
	if _, err := stock.RequireBranch(ctx, r.db, branchID); err != nil {
		return nil, err
	}

	cs := models.CreditSale{
		BuyerName:  strings.TrimSpace(in.BuyerName),
		NationalID: strings.TrimSpace(in.NationalID),
		Location:   strings.TrimSpace(in.Location),
		ProduceID:  produce.ID,
		BranchID:   branchID,
		AgentID:    who.UserID,
		Tonnage:    in.Tonnage,
		AmountDue:  in.AmountDue,
		DueDate:    in.DueDate,
		Status:     models.CreditSalePending,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&cs).Error; err != nil {
			return apperr.FromDB(err, "")
		}
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &branchID,
			UserID:      who.UserID,
			EntityType:  "credit_sale",
			EntityID:    cs.ID,
			Action:      models.AuditActionCreate,
			Description: "credit sale to " + cs.BuyerName + " of " + in.Tonnage.String() + " tons of " + produce.Name,
			After:       NewResponse(&cs),
		})
	})
	if err != nil {
		return nil, apperr.FromDB(err, "")
	}
	r.notifier.Broadcast(notify.EntityCreditSales)
	cs.Produce = produce
	return &cs, nil
}

// MarkPaid moves a pending credit sale to paid. Any other transition is a
// conflict.
func (r *Recorder) MarkPaid(ctx context.Context, who auth.Identity, id uint) (*models.CreditSale, error) {
	var cs models.CreditSale
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cs, id).Error; err != nil {
			return apperr.FromDB(err, "credit sale not found")
		}
		if scope, _ := who.ReadScope(); scope != nil && *scope != cs.BranchID {
			return apperr.Forbidden("credit sale belongs to another branch")
		}
		if cs.Status != models.CreditSalePending {
			return apperr.Conflict("credit sale is already %s", cs.Status)
		}
		before := NewResponse(&cs)
		paidAt := r.now()
		res := tx.Model(&models.CreditSale{}).
			Where("id = ? AND status = ?", id, models.CreditSalePending).
			Updates(map[string]any{"status": models.CreditSalePaid, "paid_at": paidAt})
		if res.Error != nil {
			return apperr.FromDB(res.Error, "")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("credit sale is no longer pending")
		}
		cs.Status = models.CreditSalePaid
		cs.PaidAt = &paidAt
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &cs.BranchID,
			UserID:      who.UserID,
			EntityType:  "credit_sale",
			EntityID:    cs.ID,
			Action:      models.AuditActionUpdate,
			Description: "credit sale marked paid",
			Before:      before,
			After:       NewResponse(&cs),
		})
	})
	if err != nil {
		return nil, apperr.FromDB(err, "")
	}
	r.notifier.Broadcast(notify.EntityCreditSales)
	return &cs, nil
}

type Filter struct {
	BranchID *uint
	Status   models.CreditSaleStatus
	Limit    int
	Offset   int
}

// List returns credit sales visible to the caller: agents see their own
// branch, managers and the ceo see every branch.
func (r *Recorder) List(ctx context.Context, who auth.Identity, f Filter) ([]models.CreditSale, error) {
	scope, err := who.ReadScope()
	if err != nil {
		return nil, err
	}
	if scope != nil {
		f.BranchID = scope
	}
	q := r.db.WithContext(ctx).Preload("Produce").Preload("Branch").Preload("Agent")
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var rows []models.CreditSale
	if err := q.Order("due_date, id").Find(&rows).Error; err != nil {
		return nil, apperr.Storage("list credit sales", err)
	}
	return rows, nil
}

func (r *Recorder) Get(ctx context.Context, who auth.Identity, id uint) (*models.CreditSale, error) {
	scope, err := who.ReadScope()
	if err != nil {
		return nil, err
	}
	var cs models.CreditSale
	if err := r.db.WithContext(ctx).Preload("Produce").Preload("Branch").Preload("Agent").First(&cs, id).Error; err != nil {
		return nil, apperr.FromDB(err, "credit sale not found")
	}
	if scope != nil && *scope != cs.BranchID {
		return nil, apperr.Forbidden("credit sale belongs to another branch")
	}
	return &cs, nil
}
