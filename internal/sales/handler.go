package sales

import (
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/httpx"
	"gcdl-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SaleResponse struct {
	ID            uint            `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	ProduceID     uint            `json:"produce_id"`
	ProduceName   string          `json:"produce_name,omitempty"`
	BranchID      uint            `json:"branch_id"`
	BranchName    string          `json:"branch_name,omitempty"`
	AgentID       uint            `json:"agent_id"`
	AgentName     string          `json:"agent_name,omitempty"`
	BuyerName     string          `json:"buyer_name"`
	BuyerContact  string          `json:"buyer_contact"`
	Tonnage       decimal.Decimal `json:"tonnage"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	CreatedAt     string          `json:"created_at"`
}

func NewSaleResponse(s *models.Sale) SaleResponse {
	out := SaleResponse{
		ID:            s.ID,
		ReceiptNumber: s.ReceiptNumber,
		ProduceID:     s.ProduceID,
		BranchID:      s.BranchID,
		AgentID:       s.AgentID,
		BuyerName:     s.BuyerName,
		BuyerContact:  s.BuyerContact,
		Tonnage:       s.Tonnage,
		AmountPaid:    s.AmountPaid,
		Date:          s.Date,
		Time:          s.Time,
		CreatedAt:     s.CreatedAt.Format(httpx.TimestampLayout),
	}
	if s.Produce != nil {
		out.ProduceName = s.Produce.Name
	}
	if s.Branch != nil {
		out.BranchName = s.Branch.Name
	}
	if s.Agent != nil {
		out.AgentName = s.Agent.Username
	}
	return out
}

func responses(rows []models.Sale) []SaleResponse {
	out := make([]SaleResponse, 0, len(rows))
	for i := range rows {
		out = append(out, NewSaleResponse(&rows[i]))
	}
	return out
}

func pageFilter(c *fiber.Ctx) (Filter, error) {
	limit, offset, err := httpx.Page(c)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Limit: limit, Offset: offset}, nil
}

// POST /api/sales
func RecordSaleHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		var body RecordSaleInput
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		receipt, err := r.Record(c.UserContext(), who, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Sale recorded successfully",
			"receipt": receipt,
		})
	}
}

// GET /api/sales?branch_id=
func ListSalesHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		f, err := pageFilter(c)
		if err != nil {
			return err
		}
		if f.BranchID, err = httpx.QueryID(c, "branch_id"); err != nil {
			return err
		}
		rows, err := r.List(c.UserContext(), who, f)
		if err != nil {
			return err
		}
		return httpx.List(c, responses(rows))
	}
}

// GET /api/sales/agent/:id
func ListAgentSalesHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		agentID, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		f, err := pageFilter(c)
		if err != nil {
			return err
		}
		rows, err := r.ListByAgent(c.UserContext(), who, agentID, f)
		if err != nil {
			return err
		}
		return httpx.List(c, responses(rows))
	}
}

// GET /api/sales/branch/:branchId
func ListBranchSalesHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		branchID, err := httpx.ParamID(c, "branchId")
		if err != nil {
			return err
		}
		f, err := pageFilter(c)
		if err != nil {
			return err
		}
		rows, err := r.ListByBranch(c.UserContext(), who, branchID, f)
		if err != nil {
			return err
		}
		return httpx.List(c, responses(rows))
	}
}

// GET /api/sales/:id
func GetSaleHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		sale, err := r.Get(c.UserContext(), who, id)
		if err != nil {
			return err
		}
		return c.JSON(NewSaleResponse(sale))
	}
}

// PUT /api/sales/:id
func UpdateSaleHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateSaleInput
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		sale, err := r.Update(c.UserContext(), who, id, body)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Sale updated successfully", "data": NewSaleResponse(sale)})
	}
}

// DELETE /api/sales/:id
func VoidSaleHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := r.Void(c.UserContext(), who, id); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Sale voided and stock restored"})
	}
}
