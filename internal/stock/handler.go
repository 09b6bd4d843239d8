package stock

import (
	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/httpx"
	"gcdl-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type StockResponse struct {
	ID        uint            `json:"stock_id"`
	ProduceID uint            `json:"produce_id"`
	BranchID  uint            `json:"branch_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UpdatedAt string          `json:"updated_at"`
}

func toResponse(s *models.Stock) StockResponse {
	return StockResponse{
		ID:        s.ID,
		ProduceID: s.ProduceID,
		BranchID:  s.BranchID,
		Quantity:  s.Quantity,
		UpdatedAt: s.UpdatedAt.Format(httpx.TimestampLayout),
	}
}

type SetQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// GET /api/stock?branch_id=
func ListStockHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		scope, err := who.ReadScope()
		if err != nil {
			return err
		}
		if scope == nil {
			if scope, err = httpx.QueryID(c, "branch_id"); err != nil {
				return err
			}
		}

		var rows []View
		if scope == nil {
			rows, err = l.QueryAll(c.UserContext())
		} else {
			rows, err = l.QueryByBranch(c.UserContext(), *scope)
		}
		if err != nil {
			return err
		}
		return httpx.List(c, rows)
	}
}

// GET /api/stock/:id
func GetStockHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		scope, err := who.ReadScope()
		if err != nil {
			return err
		}
		row, err := l.Get(c.UserContext(), id, scope)
		if err != nil {
			return err
		}
		return c.JSON(row)
	}
}

// GET /api/stock/branch/:branchId
func BranchStockHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		branchID, err := httpx.ParamID(c, "branchId")
		if err != nil {
			return err
		}
		scope, err := who.ReadScope()
		if err != nil {
			return err
		}
		if scope != nil && *scope != branchID {
			return apperr.Forbidden("you can only view stock for your own branch")
		}
		rows, err := l.QueryByBranch(c.UserContext(), branchID)
		if err != nil {
			return err
		}
		return httpx.List(c, rows)
	}
}

// GET /api/stock/low?threshold=10
func LowStockHandler(l *Ledger, defaultThreshold decimal.Decimal) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		threshold := defaultThreshold
		if raw := c.Query("threshold"); raw != "" {
			threshold, err = decimal.NewFromString(raw)
			if err != nil {
				return apperr.Validation("invalid threshold value")
			}
		}
		scope, err := who.ReadScope()
		if err != nil {
			return err
		}

		rows, err := l.QueryLow(c.UserContext(), threshold, scope)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return c.JSON(fiber.Map{
				"total":     0,
				"data":      []View{},
				"threshold": threshold,
				"message":   "No low stock items found",
			})
		}
		return c.JSON(fiber.Map{"total": len(rows), "data": rows, "threshold": threshold})
	}
}

func adjustHandler(run func(*Service, *fiber.Ctx, auth.Identity, AdjustInput) (*models.Stock, error), s *Service, status int, msg string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		var body AdjustInput
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		row, err := run(s, c, who, body)
		if err != nil {
			return err
		}
		return c.Status(status).JSON(fiber.Map{"message": msg, "data": toResponse(row)})
	}
}

// POST /api/stock
func StockInHandler(s *Service) fiber.Handler {
	return adjustHandler(func(s *Service, c *fiber.Ctx, who auth.Identity, in AdjustInput) (*models.Stock, error) {
		return s.StockIn(c.UserContext(), who, in)
	}, s, fiber.StatusCreated, "Stock recorded successfully")
}

// POST /api/stock/reduce
func ReduceStockHandler(s *Service) fiber.Handler {
	return adjustHandler(func(s *Service, c *fiber.Ctx, who auth.Identity, in AdjustInput) (*models.Stock, error) {
		return s.Reduce(c.UserContext(), who, in)
	}, s, fiber.StatusOK, "Stock reduced successfully")
}

// PUT /api/stock
func SetStockHandler(s *Service) fiber.Handler {
	return adjustHandler(func(s *Service, c *fiber.Ctx, who auth.Identity, in AdjustInput) (*models.Stock, error) {
		return s.Set(c.UserContext(), who, in)
	}, s, fiber.StatusOK, "Stock updated successfully")
}

// PUT /api/stock/:id
func SetStockByIDHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body SetQuantityRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		row, err := s.SetByID(c.UserContext(), who, id, body.Quantity)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Stock updated successfully", "data": toResponse(row)})
	}
}

// DELETE /api/stock/:id
func DeleteStockHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := s.Remove(c.UserContext(), who, id); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Stock record deleted successfully"})
	}
}
