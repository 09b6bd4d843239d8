// Package produce manages the catalog of produce the branches trade.
package produce

import (
	"strings"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/audit"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/httpx"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/notify"
	"gcdl-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProduceResponse struct {
	ID        uint   `json:"produce_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

type CreateProduceRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
	Type string `json:"type" validate:"required,producetype"`
}

type UpdateProduceRequest struct {
	Name *string `json:"name" validate:"omitempty,min=2,max=100"`
	Type *string `json:"type" validate:"omitempty,producetype"`
}

func newResponse(p *models.Produce) ProduceResponse {
	return ProduceResponse{
		ID:        p.ID,
		Name:      p.Name,
		Type:      p.Type,
		CreatedAt: p.CreatedAt.Format(httpx.TimestampLayout),
	}
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func nameTaken(tx *gorm.DB, name string, exceptID uint) error {
	var n int64
	if err := tx.Model(&models.Produce{}).Where("LOWER(name) = LOWER(?) AND id <> ?", name, exceptID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("produce %q already exists", name)
	}
	return nil
}

// GET /api/produce?type=
func ListProduceHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.WithContext(c.UserContext()).Order("name asc")
		if t := c.Query("type"); t != "" {
			q = q.Where("type = ?", normalizeType(t))
		}
		var rows []models.Produce
		if err := q.Find(&rows).Error; err != nil {
			return apperr.Storage("list produce", err)
		}
		res := make([]ProduceResponse, 0, len(rows))
		for i := range rows {
			res = append(res, newResponse(&rows[i]))
		}
		return httpx.List(c, res)
	}
}

// GET /api/produce/types
func ListTypesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return httpx.List(c, models.ProduceTypes)
	}
}

// GET /api/produce/:id
func GetProduceHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Produce
		if err := db.WithContext(c.UserContext()).First(&p, id).Error; err != nil {
			return apperr.FromDB(err, "produce not found")
		}
		return c.JSON(newResponse(&p))
	}
}

// POST /api/produce
func CreateProduceHandler(db *gorm.DB, notifier notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		var body CreateProduceRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		body.Name = strings.TrimSpace(body.Name)
		if err := validation.Struct(body); err != nil {
			return err
		}

		p := models.Produce{Name: body.Name, Type: normalizeType(body.Type)}
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := nameTaken(tx, p.Name, 0); err != nil {
				return err
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      who.UserID,
				EntityType:  "produce",
				EntityID:    p.ID,
				Action:      models.AuditActionCreate,
				Description: "produce " + p.Name + " added",
				After:       newResponse(&p),
			})
		})
		if err != nil {
			return apperr.FromDB(err, "")
		}
		notifier.Broadcast(notify.EntityProduce)
		return c.Status(fiber.StatusCreated).JSON(newResponse(&p))
	}
}

// PUT /api/produce/:id
func UpdateProduceHandler(db *gorm.DB, notifier notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateProduceRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			body.Name = &name
		}
		if err := validation.Struct(body); err != nil {
			return err
		}

		var p models.Produce
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&p, id).Error; err != nil {
				return apperr.FromDB(err, "produce not found")
			}
			before := newResponse(&p)
			if body.Name != nil {
				if err := nameTaken(tx, *body.Name, p.ID); err != nil {
					return err
				}
				p.Name = *body.Name
			}
			if body.Type != nil {
				p.Type = normalizeType(*body.Type)
			}
			if err := tx.Save(&p).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      who.UserID,
				EntityType:  "produce",
				EntityID:    p.ID,
				Action:      models.AuditActionUpdate,
				Description: "produce " + p.Name + " updated",
				Before:      before,
				After:       newResponse(&p),
			})
		})
		if err != nil {
			return apperr.FromDB(err, "")
		}
		notifier.Broadcast(notify.EntityProduce)
		return c.JSON(newResponse(&p))
	}
}

// DELETE /api/produce/:id
func DeleteProduceHandler(db *gorm.DB, notifier notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var p models.Produce
			if err := tx.First(&p, id).Error; err != nil {
				return apperr.FromDB(err, "produce not found")
			}
			for _, dep := range []struct {
				model any
				what  string
			}{
				{&models.Sale{}, "sales"},
				{&models.CreditSale{}, "credit sales"},
				{&models.Procurement{}, "procurements"},
				{&models.Stock{}, "stock records"},
			} {
				var n int64
				if err := tx.Model(dep.model).Where("produce_id = ?", id).Count(&n).Error; err != nil {
					return err
				}
				if n > 0 {
					return apperr.Conflict("cannot delete produce referenced by %s", dep.what)
				}
			}
			if err := tx.Delete(&p).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      who.UserID,
				EntityType:  "produce",
				EntityID:    p.ID,
				Action:      models.AuditActionDelete,
				Description: "produce " + p.Name + " deleted",
				Before:      newResponse(&p),
			})
		})
		if err != nil {
			return apperr.FromDB(err, "")
		}
		notifier.Broadcast(notify.EntityProduce)
		return c.JSON(fiber.Map{"message": "Produce deleted successfully"})
	}
}
