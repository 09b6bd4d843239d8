// Package admin holds branch and user administration endpoints.
package admin

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

type BranchResponse struct {
	ID        uint   `json:"branch_id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	CreatedAt string `json:"created_at"`
}

type CreateBranchRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Location string `json:"location" validate:"max=255"`
}

type UpdateBranchRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Location *string `json:"location" validate:"omitempty,max=255"`
}

func newBranchResponse(b *models.Branch) BranchResponse {
	return BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Location:  b.Location,
		CreatedAt: b.CreatedAt.Format(httpx.TimestampLayout),
	}
}

// nameTaken reports whether another branch already uses name, ignoring case.
func nameTaken(tx *gorm.DB, name string, exceptID uint) (bool, error) {
	var n int64
	err := tx.Model(&models.Branch{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, exceptID).
		Count(&n).Error
	return n > 0, err
}

// POST /api/branches
func CreateBranchHandler(db *gorm.DB, notifier notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		var body CreateBranchRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		body.Name = strings.TrimSpace(body.Name)
		if err := validation.Struct(body); err != nil {
			return err
		}

		branch := models.Branch{Name: body.Name, Location: strings.TrimSpace(body.Location)}
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			taken, err := nameTaken(tx, branch.Name, 0)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("branch %q already exists", branch.Name)
			}
			if err := tx.Create(&branch).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				BranchID:    &branch.ID,
				UserID:      who.UserID,
				EntityType:  "branch",
				EntityID:    branch.ID,
				Action:      models.AuditActionCreate,
				Description: "branch " + branch.Name + " created",
				After:       newBranchResponse(&branch),
			})
		})
		if err != nil {
			return apperr.FromDB(err, "")
		}
		notifier.Broadcast(notify.EntityBranches)
		return c.Status(fiber.StatusCreated).JSON(newBranchResponse(&branch))
	}
}

// GET /api/branches
func ListBranchesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := db.WithContext(c.UserContext()).Order("name").Find(&branches).Error; err != nil {
			return apperr.Storage("list branches", err)
		}
		res := make([]BranchResponse, 0, len(branches))
		for i := range branches {
			res = append(res, newBranchResponse(&branches[i]))
		}
		return httpx.List(c, res)
	}
}

// GET /api/branches/:id
func GetBranchHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var branch models.Branch
		if err := db.WithContext(c.UserContext()).First(&branch, id).Error; err != nil {
			return apperr.FromDB(err, "branch not found")
		}
		return c.JSON(newBranchResponse(&branch))
	}
}

// PUT /api/branches/:id
func UpdateBranchHandler(db *gorm.DB, notifier notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateBranchRequest
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

		var branch models.Branch
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&branch, id).Error; err != nil {
				return apperr.FromDB(err, "branch not found")
			}
			before := newBranchResponse(&branch)
			if body.Name != nil {
				taken, err := nameTaken(tx, *body.Name, branch.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperr.Conflict("branch %q already exists", *body.Name)
				}
				branch.Name = *body.Name
			}
			if body.Location != nil {
				branch.Location = strings.TrimSpace(*body.Location)
			}
			if err := tx.Save(&branch).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				BranchID:    &branch.ID,
				UserID:      who.UserID,
				EntityType:  "branch",
				EntityID:    branch.ID,
				Action:      models.AuditActionUpdate,
				Description: "branch " + branch.Name + " updated",
				Before:      before,
				After:       newBranchResponse(&branch),
			})
		})
		if err != nil {
			return apperr.FromDB(err, "")
		}
		notifier.Broadcast(notify.EntityBranches)
		return c.JSON(newBranchResponse(&branch))
	}
}

// DELETE /api/branches/:id
//
// A branch still referenced by users or trading records is kept.
func DeleteBranchHandler(db *gorm.DB, notifier notify.Broadcaster) fiber.Handler {
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
			var branch models.Branch
			if err := tx.First(&branch, id).Error; err != nil {
				return apperr.FromDB(err, "branch not found")
			}
			for _, dep := range []struct {
				model any
				what  string
			}{
				{&models.User{}, "users"},
				{&models.Procurement{}, "procurements"},
				{&models.Stock{}, "stock records"},
				{&models.Sale{}, "sales"},
				{&models.CreditSale{}, "credit sales"},
			} {
				var n int64
				if err := tx.Model(dep.model).Where("branch_id = ?", id).Count(&n).Error; err != nil {
					return err
				}
				if n > 0 {
					return apperr.Conflict("cannot delete branch with existing %s", dep.what)
				}
			}
			if err := tx.Delete(&branch).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      who.UserID,
				EntityType:  "branch",
				EntityID:    branch.ID,
				Action:      models.AuditActionDelete,
				Description: "branch " + branch.Name + " deleted",
				Before:      newBranchResponse(&branch),
			})
		})
		if err != nil {
			return apperr.FromDB(err, "")
		}
		notifier.Broadcast(notify.EntityBranches)
		return c.JSON(fiber.Map{"message": "Branch deleted successfully"})
	}
}
