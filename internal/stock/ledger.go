// Package stock owns the per-(produce, branch) quantity. Every write is one
// SQL statement keyed on the pair, so concurrent writers never see a stale
// quantity and the balance can never go negative.
package stock

import (
	"context"
	"time"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/observability"
	"gcdl-backend/internal/validation"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a ledger bound to tx so its writes join the caller's
// transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

// View is a stock row joined with produce and branch names.
type View struct {
	ID          uint            `json:"stock_id"`
	ProduceID   uint            `json:"produce_id"`
	ProduceName string          `json:"produce_name"`
	ProduceType string          `json:"produce_type"`
	BranchID    uint            `json:"branch_id"`
	BranchName  string          `json:"branch_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// checkScale rejects quantities the column would round.
func checkScale(amount decimal.Decimal) error {
	if !validation.HasScale(amount, models.TonnageScale) {
		return apperr.Validation("quantity must have at most %d decimal places", models.TonnageScale)
	}
	return nil
}

var keyColumns = []clause.Column{{Name: "produce_id"}, {Name: "branch_id"}}

func (l *Ledger) observe(ctx context.Context, op string, produceID, branchID uint) (context.Context, func(*error)) {
	ctx, span := observability.Tracer().Start(ctx, "stock."+op, trace.WithAttributes(
		attribute.Int64("produce_id", int64(produceID)),
		attribute.Int64("branch_id", int64(branchID)),
	))
	start := time.Now()
	return ctx, func(errp *error) {
		result := "ok"
		if *errp != nil {
			result = string(apperr.KindOf(*errp))
			span.RecordError(*errp)
		}
		observability.ObserveStockOp(op, result, time.Since(start))
		span.End()
	}
}

// UpsertIncrease adds amount to the (produce, branch) row, creating it when
// absent.
func (l *Ledger) UpsertIncrease(ctx context.Context, produceID, branchID uint, amount decimal.Decimal) (s *models.Stock, err error) {
	ctx, done := l.observe(ctx, "increase", produceID, branchID)
	defer done(&err)

	if !amount.IsPositive() {
		return nil, apperr.Validation("quantity must be greater than 0")
	}
	if err := checkScale(amount); err != nil {
		return nil, err
	}
	row := models.Stock{ProduceID: produceID, BranchID: branchID, Quantity: amount}
	err = l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: keyColumns,
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("stocks.quantity + excluded.quantity"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, apperr.FromDB(err, "")
	}
	return l.byKey(ctx, produceID, branchID)
}

// Decrease subtracts amount only if at least amount is on hand. The check
// and the write are a single conditional UPDATE; zero affected rows means
// the stock was short or the row does not exist.
func (l *Ledger) Decrease(ctx context.Context, produceID, branchID uint, amount decimal.Decimal) (s *models.Stock, err error) {
	ctx, done := l.observe(ctx, "decrease", produceID, branchID)
	defer done(&err)

	if !amount.IsPositive() {
		return nil, apperr.Validation("quantity must be greater than 0")
	}
	if err := checkScale(amount); err != nil {
		return nil, err
	}
	res := l.db.WithContext(ctx).Model(&models.Stock{}).
		Where("produce_id = ? AND branch_id = ? AND quantity >= ?", produceID, branchID, amount).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, apperr.FromDB(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return nil, l.shortage(ctx, produceID, branchID, amount)
	}
	return l.byKey(ctx, produceID, branchID)
}

func (l *Ledger) shortage(ctx context.Context, produceID, branchID uint, amount decimal.Decimal) error {
	var current models.Stock
	err := l.db.WithContext(ctx).Where("produce_id = ? AND branch_id = ?", produceID, branchID).Take(&current).Error
	if err != nil {
		return apperr.InsufficientStock("insufficient stock: requested " + amount.String() + " tons, none available at this branch")
	}
	return apperr.InsufficientStock("insufficient stock: requested " + amount.String() + " tons, available " + current.Quantity.String())
}

// SetAbsolute overwrites the quantity for (produce, branch), creating the
// row when absent.
func (l *Ledger) SetAbsolute(ctx context.Context, produceID, branchID uint, amount decimal.Decimal) (s *models.Stock, err error) {
	ctx, done := l.observe(ctx, "set", produceID, branchID)
	defer done(&err)

	if amount.IsNegative() {
		return nil, apperr.Validation("quantity must not be negative")
	}
	if err := checkScale(amount); err != nil {
		return nil, err
	}
	row := models.Stock{ProduceID: produceID, BranchID: branchID, Quantity: amount}
	err = l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   keyColumns,
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, apperr.FromDB(err, "")
	}
	return l.byKey(ctx, produceID, branchID)
}

// SetByID overwrites the quantity of an existing row.
func (l *Ledger) SetByID(ctx context.Context, stockID uint, amount decimal.Decimal) (s *models.Stock, err error) {
	ctx, done := l.observe(ctx, "set", 0, 0)
	defer done(&err)

	if amount.IsNegative() {
		return nil, apperr.Validation("quantity must not be negative")
	}
	if err := checkScale(amount); err != nil {
		return nil, err
	}
	res := l.db.WithContext(ctx).Model(&models.Stock{}).Where("id = ?", stockID).
		Updates(map[string]any{"quantity": amount, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, apperr.FromDB(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("stock record %d not found", stockID)
	}
	var row models.Stock
	if err := l.db.WithContext(ctx).First(&row, stockID).Error; err != nil {
		return nil, apperr.FromDB(err, "stock record not found")
	}
	return &row, nil
}

// Remove deletes a stock row by id.
func (l *Ledger) Remove(ctx context.Context, stockID uint) (err error) {
	ctx, done := l.observe(ctx, "remove", 0, 0)
	defer done(&err)

	res := l.db.WithContext(ctx).Delete(&models.Stock{}, stockID)
	if res.Error != nil {
		return apperr.FromDB(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("stock record %d not found", stockID)
	}
	return nil
}

func (l *Ledger) byKey(ctx context.Context, produceID, branchID uint) (*models.Stock, error) {
	var row models.Stock
	err := l.db.WithContext(ctx).Where("produce_id = ? AND branch_id = ?", produceID, branchID).Take(&row).Error
	if err != nil {
		return nil, apperr.FromDB(err, "stock record not found")
	}
	return &row, nil
}

// Quantity returns the on-hand amount, zero when no row exists.
func (l *Ledger) Quantity(ctx context.Context, produceID, branchID uint) (decimal.Decimal, error) {
	row, err := l.byKey(ctx, produceID, branchID)
	if apperr.Is(err, apperr.KindNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return row.Quantity, nil
}

func (l *Ledger) views(ctx context.Context) *gorm.DB {
	return l.db.WithContext(ctx).Table("stocks").
		Select("stocks.id, stocks.produce_id, produces.name AS produce_name, produces.type AS produce_type, " +
			"stocks.branch_id, branches.name AS branch_name, stocks.quantity, stocks.updated_at").
		Joins("JOIN produces ON produces.id = stocks.produce_id").
		Joins("JOIN branches ON branches.id = stocks.branch_id")
}

func (l *Ledger) scan(q *gorm.DB) ([]View, error) {
	out := []View{}
	if err := q.Order("branches.name, produces.name").Scan(&out).Error; err != nil {
		return nil, apperr.Storage("query stock", err)
	}
	return out, nil
}

// Get returns one row; when branchID is set the row must belong to it.
func (l *Ledger) Get(ctx context.Context, stockID uint, branchID *uint) (*View, error) {
	q := l.views(ctx).Where("stocks.id = ?", stockID)
	if branchID != nil {
		q = q.Where("stocks.branch_id = ?", *branchID)
	}
	rows, err := l.scan(q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("stock record %d not found", stockID)
	}
	return &rows[0], nil
}

func (l *Ledger) QueryAll(ctx context.Context) ([]View, error) {
	return l.scan(l.views(ctx))
}

func (l *Ledger) QueryByBranch(ctx context.Context, branchID uint) ([]View, error) {
	return l.scan(l.views(ctx).Where("stocks.branch_id = ?", branchID))
}

// QueryLow lists rows strictly below threshold. An empty result is not an
// error. branchID narrows the search when set.
func (l *Ledger) QueryLow(ctx context.Context, threshold decimal.Decimal, branchID *uint) ([]View, error) {
	if threshold.IsNegative() {
		return nil, apperr.Validation("threshold must not be negative")
	}
	q := l.views(ctx).Where("stocks.quantity < ?", threshold)
	if branchID != nil {
		q = q.Where("stocks.branch_id = ?", *branchID)
	}
	return l.scan(q)
}
