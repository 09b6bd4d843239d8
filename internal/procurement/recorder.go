// Package procurement records produce bought from dealers. Each purchase
// adds its tonnage to the receiving branch's stock in the same transaction.
package procurement

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
	"gcdl-backend/internal/stock"
	"gcdl-backend/internal/validation"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Recorder struct {
	db       *gorm.DB
	ledger   *stock.Ledger
	notifier notify.Broadcaster
}

func NewRecorder(db *gorm.DB, ledger *stock.Ledger, notifier notify.Broadcaster) *Recorder {
	return &Recorder{db: db, ledger: ledger, notifier: notifier}
}

type RecordInput struct {
	ProduceID     uint            `json:"produce_id" validate:"required"`
	BranchID      *uint           `json:"branch_id"`
	Type          string          `json:"type" validate:"omitempty,producetype"`
	DealerName    string          `json:"dealer_name" validate:"required,min=2,max=100"`
	DealerContact string          `json:"dealer_contact" validate:"required,ugphone"`
	Tonnage       decimal.Decimal `json:"tonnage" validate:"gte=1,scale=3"`
	Cost          decimal.Decimal `json:"cost" validate:"gte=0,scale=2"`
	SellingPrice  decimal.Decimal `json:"selling_price" validate:"gte=0,scale=2"`
	Date          string          `json:"date" validate:"required,ymd"`
	Time          string          `json:"time" validate:"required,hhmm"`
}

func (r *Recorder) Record(ctx context.Context, who auth.Identity, in RecordInput) (*models.Procurement, error) {
	ctx, span := observability.Tracer().Start(ctx, "procurement.record")
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	branchID, err := who.TargetBranch(in.BranchID)
	if err != nil {
		return nil, err
	}
	produce, err := stock.RequireProduce(ctx, r.db, in.ProduceID)
	if err != nil {
		return nil, err
	}
	if _, err := stock.RequireBranch(ctx, r.db, branchID); err != nil {
		return nil, err
	}
	typ := strings.ToLower(strings.TrimSpace(produce.Type))
	if in.Type != "" && strings.ToLower(strings.TrimSpace(in.Type)) != typ {
		return nil, apperr.Validation("type %q does not match %s, which is %s", in.Type, produce.Name, typ)
	}

	p := models.Procurement{
		ProduceID:     produce.ID,
		BranchID:      branchID,
		Type:          typ,
		DealerName:    strings.TrimSpace(in.DealerName),
		DealerContact: in.DealerContact,
		Tonnage:       in.Tonnage,
		Cost:          in.Cost,
		SellingPrice:  in.SellingPrice,
		Date:          in.Date,
		Time:          in.Time,
		RecordedBy:    who.UserID,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return apperr.FromDB(err, "")
		}
		if _, err := r.ledger.WithTx(tx).UpsertIncrease(ctx, produce.ID, branchID, in.Tonnage); err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &branchID,
			UserID:      who.UserID,
			EntityType:  "procurement",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("procured %s tons of %s from %s", in.Tonnage, produce.Name, p.DealerName),
			After:       NewResponse(&p),
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperr.FromDB(err, "")
	}

	r.notifier.Broadcast(notify.EntityProcurement)
	r.notifier.Broadcast(notify.EntityStock)
	p.Produce = produce
	return &p, nil
}

// List returns procurements newest first, optionally for one branch.
func (r *Recorder) List(ctx context.Context, branchID *uint, limit, offset int) ([]models.Procurement, error) {
	q := r.db.WithContext(ctx).Preload("Produce").Preload("Branch")
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var rows []models.Procurement
	if err := q.Order("date DESC, time DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, apperr.Storage("list procurements", err)
	}
	return rows, nil
}

func (r *Recorder) Get(ctx context.Context, id uint) (*models.Procurement, error) {
	var p models.Procurement
	if err := r.db.WithContext(ctx).Preload("Produce").Preload("Branch").First(&p, id).Error; err != nil {
		return nil, apperr.FromDB(err, "procurement not found")
	}
	return &p, nil
}
