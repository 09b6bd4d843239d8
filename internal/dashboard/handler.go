package dashboard

import (
	"time"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/httpx"
	"gcdl-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// rangeFrom reads ?branch_id=&from=&to=.
func rangeFrom(c *fiber.Ctx) (Range, error) {
	var r Range
	var err error
	if r.BranchID, err = httpx.QueryID(c, "branch_id"); err != nil {
		return r, err
	}
	for _, p := range []struct {
		name string
		dst  *string
	}{{"from", &r.From}, {"to", &r.To}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		if _, err := validation.ParseDate(raw); err != nil {
			return r, apperr.Validation("%s must be a date in YYYY-MM-DD format", p.name)
		}
		*p.dst = raw
	}
	if r.From != "" && r.To != "" && r.From > r.To {
		return r, apperr.Validation("from must not be after to")
	}
	return r, nil
}

// GET /api/dashboard/sales-by-produce
func SalesByProduceHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFrom(c)
		if err != nil {
			return err
		}
		rows, err := s.SalesByProduce(c.UserContext(), r)
		if err != nil {
			return err
		}
		return httpx.List(c, rows)
	}
}

// GET /api/dashboard/stock-levels
func StockLevelsHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := httpx.QueryID(c, "branch_id")
		if err != nil {
			return err
		}
		rows, err := s.StockLevels(c.UserContext(), branchID)
		if err != nil {
			return err
		}
		return httpx.List(c, rows)
	}
}

// GET /api/dashboard/procurements-by-month
func ProcurementsByMonthHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFrom(c)
		if err != nil {
			return err
		}
		rows, err := s.ProcurementsByMonth(c.UserContext(), r)
		if err != nil {
			return err
		}
		return httpx.List(c, rows)
	}
}

// GET /api/dashboard/credit-sales-by-status
func CreditSalesByStatusHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := httpx.QueryID(c, "branch_id")
		if err != nil {
			return err
		}
		rows, err := s.CreditSalesByStatus(c.UserContext(), branchID)
		if err != nil {
			return err
		}
		return httpx.List(c, rows)
	}
}

// GET /api/dashboard/sales-report.xlsx
func SalesReportHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFrom(c)
		if err != nil {
			return err
		}
		rows, err := s.Sales(c.UserContext(), r)
		if err != nil {
			return err
		}
		buf, err := WriteSalesReport(rows)
		if err != nil {
			return apperr.Storage("render sales report", err)
		}
		c.Attachment("sales-report-" + time.Now().Format("20060102") + ".xlsx")
		c.Set(fiber.HeaderContentType, xlsxContentType)
		return c.Send(buf.Bytes())
	}
}
