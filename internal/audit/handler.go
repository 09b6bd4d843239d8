package audit

import (
	"encoding/json"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/httpx"
	"gcdl-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	BranchID    *uint              `json:"branch_id"`
	UserID      uint               `json:"user_id"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Before      json.RawMessage    `json:"before"`
	After       json.RawMessage    `json:"after"`
}

// GET /api/audit-logs?entity_type=sale&entity_id=1&branch_id=1&user_id=2&limit=50&offset=0
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := httpx.Page(c)
		if err != nil {
			return err
		}

		q := db.WithContext(c.UserContext()).Model(&models.AuditLog{})

		if v, err := httpx.QueryID(c, "branch_id"); err != nil {
			return err
		} else if v != nil {
			q = q.Where("branch_id = ?", *v)
		}
		if v, err := httpx.QueryID(c, "user_id"); err != nil {
			return err
		} else if v != nil {
			q = q.Where("user_id = ?", *v)
		}
		if v, err := httpx.QueryID(c, "entity_id"); err != nil {
			return err
		} else if v != nil {
			q = q.Where("entity_id = ?", *v)
		}
		if et := c.Query("entity_type"); et != "" {
			q = q.Where("entity_type = ?", et)
		}

		var logs []models.AuditLog
		if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
			return apperr.Storage("list audit logs", err)
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format(httpx.TimestampLayout),
				BranchID:    l.BranchID,
				UserID:      l.UserID,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				Before:      json.RawMessage(l.BeforeData),
				After:       json.RawMessage(l.AfterData),
			})
		}
		return httpx.List(c, resp)
	}
}
