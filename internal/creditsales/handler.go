package creditsales

import (
	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/httpx"
	"gcdl-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Response struct {
	ID          uint                    `json:"credit_sale_id"`
	BuyerName   string                  `json:"buyer_name"`
	NationalID  string                  `json:"national_id"`
	Location    string                  `json:"location"`
	ProduceID   uint                    `json:"produce_id"`
	ProduceName string                  `json:"produce_name,omitempty"`
	BranchID    uint                    `json:"branch_id"`
	BranchName  string                  `json:"branch_name,omitempty"`
	AgentID     uint                    `json:"agent_id"`
	AgentName   string                  `json:"agent_name,omitempty"`
	Tonnage     decimal.Decimal         `json:"tonnage"`
	AmountDue   decimal.Decimal         `json:"amount_due"`
	DueDate     string                  `json:"due_date"`
	Status      models.CreditSaleStatus `json:"status"`
	PaidAt      *string                 `json:"paid_at"`
	CreatedAt   string                  `json:"created_at"`
}

func NewResponse(cs *models.CreditSale) Response {
	out := Response{
		ID:         cs.ID,
		BuyerName:  cs.BuyerName,
		NationalID: cs.NationalID,
		Location:   cs.Location,
		ProduceID:  cs.ProduceID,
		BranchID:   cs.BranchID,
		AgentID:    cs.AgentID,
		Tonnage:    cs.Tonnage,
		AmountDue:  cs.AmountDue,
		DueDate:    cs.DueDate,
		Status:     cs.Status,
		CreatedAt:  cs.CreatedAt.Format(httpx.TimestampLayout),
	}
	if cs.PaidAt != nil {
		paid := cs.PaidAt.Format(httpx.TimestampLayout)
		out.PaidAt = &paid
	}
	if cs.Produce != nil {
		out.ProduceName = cs.Produce.Name
	}
	if cs.Branch != nil {
		out.BranchName = cs.Branch.Name
	}
	if cs.Agent != nil {
		out.AgentName = cs.Agent.Username
	}
	return out
}

type StatusRequest struct {
	Status models.CreditSaleStatus `json:"status"`
}

// POST /api/credit-sales
func RecordHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		var body RecordInput
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		cs, err := r.Record(c.UserContext(), who, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Credit sale recorded successfully",
			"data":    NewResponse(cs),
		})
	}
}

// GET /api/credit-sales?branch_id=&status=
func ListHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		limit, offset, err := httpx.Page(c)
		if err != nil {
			return err
		}
		f := Filter{Limit: limit, Offset: offset, Status: models.CreditSaleStatus(c.Query("status"))}
		switch f.Status {
		case "", models.CreditSalePending, models.CreditSalePaid:
		default:
			return apperr.Validation("status must be pending or paid")
		}
		if f.BranchID, err = httpx.QueryID(c, "branch_id"); err != nil {
			return err
		}
		rows, err := r.List(c.UserContext(), who, f)
		if err != nil {
			return err
		}
		out := make([]Response, 0, len(rows))
		for i := range rows {
			out = append(out, NewResponse(&rows[i]))
		}
		return httpx.List(c, out)
	}
}

// GET /api/credit-sales/:id
func GetHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		cs, err := r.Get(c.UserContext(), who, id)
		if err != nil {
			return err
		}
		return c.JSON(NewResponse(cs))
	}
}

// PATCH /api/credit-sales/:id/status
func UpdateStatusHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body StatusRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		if body.Status != models.CreditSalePaid {
			return apperr.Conflict("credit sales can only move from pending to paid")
		}
		cs, err := r.MarkPaid(c.UserContext(), who, id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Credit sale marked as paid", "data": NewResponse(cs)})
	}
}
