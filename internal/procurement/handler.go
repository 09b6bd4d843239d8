package procurement

import (
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/httpx"
	"gcdl-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Response struct {
	ID            uint            `json:"procurement_id"`
	ProduceID     uint            `json:"produce_id"`
	ProduceName   string          `json:"produce_name,omitempty"`
	BranchID      uint            `json:"branch_id"`
	BranchName    string          `json:"branch_name,omitempty"`
	Type          string          `json:"type"`
	DealerName    string          `json:"dealer_name"`
	DealerContact string          `json:"dealer_contact"`
	Tonnage       decimal.Decimal `json:"tonnage"`
	Cost          decimal.Decimal `json:"cost"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	RecordedBy    uint            `json:"recorded_by"`
	CreatedAt     string          `json:"created_at"`
}

func NewResponse(p *models.Procurement) Response {
	out := Response{
		ID:            p.ID,
		ProduceID:     p.ProduceID,
		BranchID:      p.BranchID,
		Type:          p.Type,
		DealerName:    p.DealerName,
		DealerContact: p.DealerContact,
		Tonnage:       p.Tonnage,
		Cost:          p.Cost,
		SellingPrice:  p.SellingPrice,
		Date:          p.Date,
		Time:          p.Time,
		RecordedBy:    p.RecordedBy,
		CreatedAt:     p.CreatedAt.Format(httpx.TimestampLayout),
	}
	if p.Produce != nil {
		out.ProduceName = p.Produce.Name
	}
	if p.Branch != nil {
		out.BranchName = p.Branch.Name
	}
	return out
}

// POST /api/procurements
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
		p, err := r.Record(c.UserContext(), who, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Procurement recorded successfully",
			"data":    NewResponse(p),
		})
	}
}

// GET /api/procurements?branch_id=
func ListHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := httpx.QueryID(c, "branch_id")
		if err != nil {
			return err
		}
		limit, offset, err := httpx.Page(c)
		if err != nil {
			return err
		}
		rows, err := r.List(c.UserContext(), branchID, limit, offset)
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

// GET /api/procurements/:id
func GetHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		p, err := r.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(NewResponse(p))
	}
}
