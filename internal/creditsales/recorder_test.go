package creditsales

import (
	"context"
	"testing"
	"time"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/notify"
	"gcdl-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	rec     *Recorder
	beans   models.Produce
	kampala models.Branch
	gulu    models.Branch
	agent   auth.Identity
	guluAg  auth.Identity
	manager auth.Identity
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	f := &fixture{
		db:      db,
		rec:     NewRecorder(db, notify.Nop{}).WithClock(func() time.Time { return fixedNow }),
		beans:   testutil.Produce(t, db, "Beans", "beans"),
		kampala: testutil.Branch(t, db, "Kampala"),
		gulu:    testutil.Branch(t, db, "Gulu"),
	}
	a := testutil.User(t, db, "agent@gcdl.ug", models.RoleSalesAgent, &f.kampala.ID)
	g := testutil.User(t, db, "gulu@gcdl.ug", models.RoleSalesAgent, &f.gulu.ID)
	m := testutil.User(t, db, "manager@gcdl.ug", models.RoleManager, &f.kampala.ID)
	f.agent = auth.Identity{UserID: a.ID, Role: a.Role, BranchID: a.BranchID}
	f.guluAg = auth.Identity{UserID: g.ID, Role: g.Role, BranchID: g.BranchID}
	f.manager = auth.Identity{UserID: m.ID, Role: m.Role, BranchID: m.BranchID}
	return f
}

func (f *fixture) input() RecordInput {
	return RecordInput{
		BuyerName:  "Nakato Sarah",
		NationalID: "CM90012345ABCD",
		Location:   "Nakawa",
		ProduceID:  f.beans.ID,
		Tonnage:    testutil.Dec("0.5"),
		AmountDue:  testutil.Dec("750000"),
		DueDate:    "2026-04-14",
	}
}

func TestRecordIsPendingAndStockNeutral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.Stock(t, f.db, f.beans.ID, f.kampala.ID, "2")

	cs, err := f.rec.Record(ctx, f.agent, f.input())
	require.NoError(t, err)
	assert.Equal(t, models.CreditSalePending, cs.Status)
	assert.Equal(t, f.kampala.ID, cs.BranchID)
	assert.Equal(t, f.agent.UserID, cs.AgentID)
	assert.Nil(t, cs.PaidAt)

	var s models.Stock
	require.NoError(t, f.db.First(&s).Error)
	assert.Equal(t, "2", s.Quantity.String())
}

func TestRecordValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input()
	in.DueDate = "2026-03-14"
	_, err := f.rec.Record(ctx, f.agent, in)
	require.NoError(t, err, "due today is allowed")

	cases := map[string]func(*RecordInput){
		"due yesterday":   func(in *RecordInput) { in.DueDate = "2026-03-13" },
		"tiny tonnage":    func(in *RecordInput) { in.Tonnage = testutil.Dec("0.05") },
		"nothing due":     func(in *RecordInput) { in.AmountDue = testutil.Dec("0") },
		"no national id":  func(in *RecordInput) { in.NationalID = "" },
		"malformed date":  func(in *RecordInput) { in.DueDate = "2026-4-1" },
		"no buyer":        func(in *RecordInput) { in.BuyerName = "" },
		"location absent": func(in *RecordInput) { in.Location = "" },
		"tonnage scale":   func(in *RecordInput) { in.Tonnage = testutil.Dec("0.1005") },
		"amount scale":    func(in *RecordInput) { in.AmountDue = testutil.Dec("750000.001") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := f.input()
			mutate(&in)
			_, err := f.rec.Record(ctx, f.agent, in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	in = f.input()
	in.ProduceID = 999
	_, err = f.rec.Record(ctx, f.agent, in)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDueDateBoundaryIsUTC(t *testing.T) {
	f := newFixture(t)
	// 01:00 in Kampala on the 15th is still the 14th in UTC.
	eat := time.FixedZone("EAT", 3*60*60)
	f.rec.WithClock(func() time.Time { return time.Date(2026, 3, 15, 1, 0, 0, 0, eat) })

	in := f.input()
	in.DueDate = "2026-03-14"
	_, err := f.rec.Record(context.Background(), f.agent, in)
	require.NoError(t, err)

	in.DueDate = "2026-03-13"
	_, err = f.rec.Record(context.Background(), f.agent, in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRecordUsesAgentsCurrentBranch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.agent.UserID).Update("branch_id", f.gulu.ID).Error)

	cs, err := f.rec.Record(context.Background(), f.agent, f.input())
	require.NoError(t, err)
	assert.Equal(t, f.gulu.ID, cs.BranchID)
}

func TestMarkPaidOnlyFromPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cs, err := f.rec.Record(ctx, f.agent, f.input())
	require.NoError(t, err)

	paid, err := f.rec.MarkPaid(ctx, f.manager, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditSalePaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, fixedNow.Equal(*paid.PaidAt))

	_, err = f.rec.MarkPaid(ctx, f.manager, cs.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.rec.MarkPaid(ctx, f.manager, 404)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	var audits int64
	f.db.Model(&models.AuditLog{}).Where("entity_type = ?", "credit_sale").Count(&audits)
	assert.Equal(t, int64(2), audits)
}

func TestListScopesAgentsToTheirBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine, err := f.rec.Record(ctx, f.agent, f.input())
	require.NoError(t, err)
	theirs, err := f.rec.Record(ctx, f.guluAg, f.input())
	require.NoError(t, err)

	rows, err := f.rec.List(ctx, f.agent, Filter{BranchID: &f.gulu.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mine.ID, rows[0].ID)

	rows, err = f.rec.List(ctx, f.manager, Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = f.rec.MarkPaid(ctx, f.manager, theirs.ID)
	require.NoError(t, err)
	rows, err = f.rec.List(ctx, f.manager, Filter{Status: models.CreditSalePending})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mine.ID, rows[0].ID)

	_, err = f.rec.Get(ctx, f.agent, theirs.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	got, err := f.rec.Get(ctx, f.manager, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gulu", got.Branch.Name)

	_, err = f.rec.List(ctx, auth.Identity{UserID: 99, Role: models.RoleSalesAgent}, Filter{})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
