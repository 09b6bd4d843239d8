package stock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type ledgerFixture struct {
	db      *gorm.DB
	ledger  *Ledger
	maize   models.Produce
	beans   models.Produce
	kampala models.Branch
	mbale   models.Branch
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	db := testutil.NewDB(t)
	return &ledgerFixture{
		db:      db,
		ledger:  NewLedger(db),
		maize:   testutil.Produce(t, db, "Maize", "grain maize"),
		beans:   testutil.Produce(t, db, "Beans", "beans"),
		kampala: testutil.Branch(t, db, "Kampala"),
		mbale:   testutil.Branch(t, db, "Mbale"),
	}
}

func assertQty(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, testutil.Dec(want).Equal(got), "want %s, got %s", want, got)
}

func (f *ledgerFixture) rows(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&models.Stock{}).Count(&n).Error)
	return n
}

func TestUpsertIncreaseTwiceKeepsOneRow(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	first, err := f.ledger.UpsertIncrease(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("5"))
	require.NoError(t, err)
	assertQty(t, "5", first.Quantity)

	second, err := f.ledger.UpsertIncrease(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("2.5"))
	require.NoError(t, err)
	assertQty(t, "7.5", second.Quantity)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), f.rows(t))
}

func TestUpsertIncreaseKeysArePerBranchAndProduce(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.ledger.UpsertIncrease(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("1"))
	require.NoError(t, err)
	_, err = f.ledger.UpsertIncrease(ctx, f.maize.ID, f.mbale.ID, testutil.Dec("2"))
	require.NoError(t, err)
	_, err = f.ledger.UpsertIncrease(ctx, f.beans.ID, f.kampala.ID, testutil.Dec("3"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.rows(t))
}

func TestUpsertIncreaseRejectsNonPositive(t *testing.T) {
	f := newLedgerFixture(t)
	for _, amt := range []string{"0", "-1"} {
		_, err := f.ledger.UpsertIncrease(context.Background(), f.maize.ID, f.kampala.ID, testutil.Dec(amt))
		assert.True(t, apperr.Is(err, apperr.KindValidation), amt)
	}
	assert.Equal(t, int64(0), f.rows(t))
}

func TestDecrease(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	testutil.Stock(t, f.db, f.maize.ID, f.kampala.ID, "5")

	row, err := f.ledger.Decrease(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("3"))
	require.NoError(t, err)
	assertQty(t, "2", row.Quantity)

	_, err = f.ledger.Decrease(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("3"))
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))
	assert.ErrorContains(t, err, "available 2")

	qty, err := f.ledger.Quantity(ctx, f.maize.ID, f.kampala.ID)
	require.NoError(t, err)
	assertQty(t, "2", qty)

	row, err = f.ledger.Decrease(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("2"))
	require.NoError(t, err)
	assertQty(t, "0", row.Quantity)
}

func TestDecreaseWithoutRowIsInsufficient(t *testing.T) {
	f := newLedgerFixture(t)
	_, err := f.ledger.Decrease(context.Background(), f.beans.ID, f.mbale.ID, testutil.Dec("1"))
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))
	assert.Equal(t, int64(0), f.rows(t))
}

func TestDecreaseRejectsNonPositive(t *testing.T) {
	f := newLedgerFixture(t)
	testutil.Stock(t, f.db, f.maize.ID, f.kampala.ID, "5")
	_, err := f.ledger.Decrease(context.Background(), f.maize.ID, f.kampala.ID, decimal.Zero)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestConcurrentDecreasesNeverOversell(t *testing.T) {
	f := newLedgerFixture(t)
	testutil.Stock(t, f.db, f.maize.ID, f.kampala.ID, "10")

	var ok, short int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Decrease(context.Background(), f.maize.ID, f.kampala.ID, testutil.Dec("1"))
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case apperr.Is(err, apperr.KindInsufficientStock):
				atomic.AddInt32(&short, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), ok)
	assert.Equal(t, int32(15), short)
	qty, err := f.ledger.Quantity(context.Background(), f.maize.ID, f.kampala.ID)
	require.NoError(t, err)
	assertQty(t, "0", qty)
}

func TestSetAbsolute(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	row, err := f.ledger.SetAbsolute(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("4"))
	require.NoError(t, err)
	assertQty(t, "4", row.Quantity)

	row, err = f.ledger.SetAbsolute(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("0"))
	require.NoError(t, err)
	assertQty(t, "0", row.Quantity)
	assert.Equal(t, int64(1), f.rows(t))

	_, err = f.ledger.SetAbsolute(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("-1"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestSetByIDAndRemove(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	s := testutil.Stock(t, f.db, f.maize.ID, f.kampala.ID, "5")

	row, err := f.ledger.SetByID(ctx, s.ID, testutil.Dec("12"))
	require.NoError(t, err)
	assertQty(t, "12", row.Quantity)

	_, err = f.ledger.SetByID(ctx, 999, testutil.Dec("1"))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, f.ledger.Remove(ctx, s.ID))
	assert.True(t, apperr.Is(f.ledger.Remove(ctx, s.ID), apperr.KindNotFound))
}

func TestQueries(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	testutil.Stock(t, f.db, f.maize.ID, f.kampala.ID, "5")
	testutil.Stock(t, f.db, f.beans.ID, f.kampala.ID, "20")
	low := testutil.Stock(t, f.db, f.beans.ID, f.mbale.ID, "2")

	all, err := f.ledger.QueryAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	kampala, err := f.ledger.QueryByBranch(ctx, f.kampala.ID)
	require.NoError(t, err)
	require.Len(t, kampala, 2)
	assert.Equal(t, "Kampala", kampala[0].BranchName)
	assert.Equal(t, "Beans", kampala[0].ProduceName)

	lows, err := f.ledger.QueryLow(ctx, testutil.Dec("10"), nil)
	require.NoError(t, err)
	assert.Len(t, lows, 2)

	lows, err = f.ledger.QueryLow(ctx, testutil.Dec("10"), &f.mbale.ID)
	require.NoError(t, err)
	require.Len(t, lows, 1)
	assert.Equal(t, low.ID, lows[0].ID)

	lows, err = f.ledger.QueryLow(ctx, testutil.Dec("1"), nil)
	require.NoError(t, err)
	assert.NotNil(t, lows)
	assert.Empty(t, lows)

	_, err = f.ledger.QueryLow(ctx, testutil.Dec("-1"), nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	view, err := f.ledger.Get(ctx, low.ID, &f.mbale.ID)
	require.NoError(t, err)
	assertQty(t, "2", view.Quantity)

	_, err = f.ledger.Get(ctx, low.ID, &f.kampala.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDecreaseRollsBackWithTransaction(t *testing.T) {
	f := newLedgerFixture(t)
	testutil.Stock(t, f.db, f.maize.ID, f.kampala.ID, "5")

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if _, err := f.ledger.WithTx(tx).Decrease(context.Background(), f.maize.ID, f.kampala.ID, testutil.Dec("3")); err != nil {
			return err
		}
		return apperr.Storage("later write failed", nil)
	})
	require.Error(t, err)

	qty, err := f.ledger.Quantity(context.Background(), f.maize.ID, f.kampala.ID)
	require.NoError(t, err)
	assertQty(t, "5", qty)
}

func TestWritesRejectQuantitiesFinerThanTheColumn(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	s, err := f.ledger.UpsertIncrease(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("5"))
	require.NoError(t, err)

	fine := testutil.Dec("0.0004")
	_, err = f.ledger.UpsertIncrease(ctx, f.maize.ID, f.kampala.ID, fine)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.ledger.Decrease(ctx, f.maize.ID, f.kampala.ID, fine)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.ledger.SetAbsolute(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("4.9996"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.ledger.SetByID(ctx, s.ID, testutil.Dec("4.9996"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	q, err := f.ledger.Quantity(ctx, f.maize.ID, f.kampala.ID)
	require.NoError(t, err)
	assertQty(t, "5", q)

	_, err = f.ledger.Decrease(ctx, f.maize.ID, f.kampala.ID, testutil.Dec("0.5000"))
	require.NoError(t, err, "trailing zeros are not extra precision")
}
