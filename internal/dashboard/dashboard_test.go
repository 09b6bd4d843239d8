package dashboard

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type seed struct {
	db      *gorm.DB
	kampala models.Branch
	gulu    models.Branch
}

func newSeed(t *testing.T) *seed {
	db := testutil.NewDB(t)
	s := &seed{db: db, kampala: testutil.Branch(t, db, "Kampala"), gulu: testutil.Branch(t, db, "Gulu")}
	maize := testutil.Produce(t, db, "Maize", "grain maize")
	beans := testutil.Produce(t, db, "Beans", "beans")
	agent := testutil.User(t, db, "agent@gcdl.ug", models.RoleSalesAgent, &s.kampala.ID)

	testutil.Stock(t, db, maize.ID, s.kampala.ID, "4")
	testutil.Stock(t, db, maize.ID, s.gulu.ID, "6")
	testutil.Stock(t, db, beans.ID, s.gulu.ID, "2")

	sales := []models.Sale{
		{ReceiptNumber: "RCT-1", ProduceID: maize.ID, BranchID: s.kampala.ID, AgentID: agent.ID, BuyerName: "A",
			BuyerContact: "+256700000001", Tonnage: testutil.Dec("2"), AmountPaid: testutil.Dec("100"), Date: "2026-01-10", Time: "09:00"},
		{ReceiptNumber: "RCT-2", ProduceID: maize.ID, BranchID: s.gulu.ID, AgentID: agent.ID, BuyerName: "B",
			BuyerContact: "+256700000002", Tonnage: testutil.Dec("1"), AmountPaid: testutil.Dec("50"), Date: "2026-02-10", Time: "10:00"},
		{ReceiptNumber: "RCT-3", ProduceID: beans.ID, BranchID: s.kampala.ID, AgentID: agent.ID, BuyerName: "C",
			BuyerContact: "+256700000003", Tonnage: testutil.Dec("3"), AmountPaid: testutil.Dec("300"), Date: "2026-02-11", Time: "11:00"},
	}
	require.NoError(t, db.Create(&sales).Error)

	procurements := []models.Procurement{
		{ProduceID: maize.ID, BranchID: s.kampala.ID, Type: "grain maize", DealerName: "D", DealerContact: "+256700000009",
			Tonnage: testutil.Dec("5"), Cost: testutil.Dec("1000"), SellingPrice: testutil.Dec("10"), Date: "2026-01-02", Time: "08:00", RecordedBy: agent.ID},
		{ProduceID: maize.ID, BranchID: s.gulu.ID, Type: "grain maize", DealerName: "D", DealerContact: "+256700000009",
			Tonnage: testutil.Dec("7"), Cost: testutil.Dec("1500"), SellingPrice: testutil.Dec("10"), Date: "2026-01-20", Time: "08:00", RecordedBy: agent.ID},
		{ProduceID: beans.ID, BranchID: s.gulu.ID, Type: "beans", DealerName: "D", DealerContact: "+256700000009",
			Tonnage: testutil.Dec("3"), Cost: testutil.Dec("900"), SellingPrice: testutil.Dec("10"), Date: "2026-03-01", Time: "08:00", RecordedBy: agent.ID},
	}
	require.NoError(t, db.Create(&procurements).Error)

	credit := []models.CreditSale{
		{BuyerName: "E", NationalID: "N1", Location: "L", ProduceID: maize.ID, BranchID: s.kampala.ID, AgentID: agent.ID,
			Tonnage: testutil.Dec("1"), AmountDue: testutil.Dec("200"), DueDate: "2026-05-01", Status: models.CreditSalePending},
		{BuyerName: "F", NationalID: "N2", Location: "L", ProduceID: beans.ID, BranchID: s.gulu.ID, AgentID: agent.ID,
			Tonnage: testutil.Dec("2"), AmountDue: testutil.Dec("300"), DueDate: "2026-05-01", Status: models.CreditSalePaid},
	}
	require.NoError(t, db.Create(&credit).Error)
	return s
}

func TestAggregates(t *testing.T) {
	s := newSeed(t)
	svc := NewService(s.db)
	ctx := context.Background()

	bySale, err := svc.SalesByProduce(ctx, Range{})
	require.NoError(t, err)
	require.Len(t, bySale, 2)
	assert.Equal(t, "Beans", bySale[0].ProduceName)
	assert.Equal(t, "3", bySale[1].TotalTonnage.String())
	assert.Equal(t, int64(2), bySale[1].SaleCount)

	bySale, err = svc.SalesByProduce(ctx, Range{BranchID: &s.kampala.ID, From: "2026-02-01"})
	require.NoError(t, err)
	require.Len(t, bySale, 1)
	assert.Equal(t, "300", bySale[0].TotalAmount.String())

	levels, err := svc.StockLevels(ctx, nil)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "10", levels[1].TotalQuantity.String())
	assert.Equal(t, int64(2), levels[1].BranchCount)

	months, err := svc.ProcurementsByMonth(ctx, Range{})
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, "2026-01", months[0].Month)
	assert.Equal(t, "12", months[0].TotalTonnage.String())
	assert.Equal(t, "2500", months[0].TotalCost.String())

	statuses, err := svc.CreditSalesByStatus(ctx, &s.gulu.ID)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, models.CreditSalePaid, statuses[0].Status)
	assert.Equal(t, "300", statuses[0].TotalDue.String())
}

func TestSalesReport(t *testing.T) {
	s := newSeed(t)
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler(testutil.Logger())})
	app.Get("/report", SalesReportHandler(NewService(s.db)))

	resp, err := app.Test(httptest.NewRequest("GET", "/report?to=2026-02-10", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "sales-report-")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(salesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4, "header, two sales, totals")
	assert.Equal(t, "Receipt", rows[0][0])
	assert.Equal(t, "RCT-1", rows[1][0])
	assert.Equal(t, "Kampala", rows[1][3])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "3", rows[3][8])
	assert.Equal(t, "150", rows[3][9])

	resp, err = app.Test(httptest.NewRequest("GET", "/report?from=2026-03-01&to=2026-01-01", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
