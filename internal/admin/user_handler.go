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

type UpdateUserRequest struct {
	Username *string          `json:"username" validate:"omitempty,min=2,max=100"`
	Role     *models.UserRole `json:"role" validate:"omitempty,oneof=ceo manager sales_agent"`
	BranchID *uint            `json:"branch_id"`
	// ClearBranch detaches the user from any branch, as required for a ceo.
	ClearBranch bool `json:"clear_branch"`
}

func userList(c *fiber.Ctx, q *gorm.DB) error {
	limit, offset, err := httpx.Page(c)
	if err != nil {
		return err
	}
	var users []models.User
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return apperr.Storage("list users", err)
	}
	res := make([]auth.UserResponse, 0, len(users))
	for i := range users {
		res = append(res, auth.NewUserResponse(&users[i]))
	}
	return httpx.List(c, res)
}

// GET /api/users?role=&branch_id=
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.WithContext(c.UserContext()).Model(&models.User{})
		if role := models.UserRole(c.Query("role")); role != "" {
			if !role.Valid() {
				return apperr.Validation("role must be one of ceo, manager, sales_agent")
			}
			q = q.Where("role = ?", role)
		}
		branchID, err := httpx.QueryID(c, "branch_id")
		if err != nil {
			return err
		}
		if branchID != nil {
			q = q.Where("branch_id = ?", *branchID)
		}
		return userList(c, q)
	}
}

// GET /api/users/sales-agents
func ListSalesAgentsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.WithContext(c.UserContext()).Model(&models.User{}).Where("role = ?", models.RoleSalesAgent)
		branchID, err := httpx.QueryID(c, "branch_id")
		if err != nil {
			return err
		}
		if branchID != nil {
			q = q.Where("branch_id = ?", *branchID)
		}
		return userList(c, q)
	}
}

// GET /api/users/:id
func GetUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, id).Error; err != nil {
			return apperr.FromDB(err, "user not found")
		}
		return c.JSON(auth.NewUserResponse(&user))
	}
}

// PATCH /api/users/:id
func UpdateUserHandler(db *gorm.DB, notifier notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateUserRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		if body.Username != nil {
			name := strings.TrimSpace(*body.Username)
			body.Username = &name
		}
		if err := validation.Struct(body); err != nil {
			return err
		}

		var user models.User
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&user, id).Error; err != nil {
				return apperr.FromDB(err, "user not found")
			}
			before := auth.NewUserResponse(&user)
			if body.Username != nil {
				user.Username = *body.Username
			}
			if body.Role != nil {
				if user.ID == who.UserID && *body.Role != user.Role {
					return apperr.Conflict("you cannot change your own role")
				}
				user.Role = *body.Role
			}
			switch {
			case body.ClearBranch:
				user.BranchID = nil
			case body.BranchID != nil:
				user.BranchID = body.BranchID
			}
			if err := auth.ValidateRoleBranch(tx, user.Role, user.BranchID); err != nil {
				return err
			}
			if err := tx.Select("username", "role", "branch_id", "updated_at").Updates(&user).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				BranchID:    user.BranchID,
				UserID:      who.UserID,
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionUpdate,
				Description: "user " + user.Email + " updated",
				Before:      before,
				After:       auth.NewUserResponse(&user),
			})
		})
		if err != nil {
			return apperr.FromDB(err, "")
		}
		notifier.Broadcast(notify.EntityUsers)
		return c.JSON(auth.NewUserResponse(&user))
	}
}

// DELETE /api/users/:id
func DeleteUserHandler(db *gorm.DB, notifier notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := auth.MustIdentity(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		if id == who.UserID {
			return apperr.Conflict("you cannot delete your own account")
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var user models.User
			if err := tx.First(&user, id).Error; err != nil {
				return apperr.FromDB(err, "user not found")
			}
			for _, dep := range []any{&models.Sale{}, &models.CreditSale{}} {
				var n int64
				if err := tx.Model(dep).Where("agent_id = ?", id).Count(&n).Error; err != nil {
					return err
				}
				if n > 0 {
					return apperr.Conflict("cannot delete a user who has recorded sales")
				}
			}
			if err := tx.Delete(&user).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				BranchID:    user.BranchID,
				UserID:      who.UserID,
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionDelete,
				Description: "user " + user.Email + " deleted",
				Before:      auth.NewUserResponse(&user),
			})
		})
		if err != nil {
			return apperr.FromDB(err, "")
		}
		notifier.Broadcast(notify.EntityUsers)
		return c.JSON(fiber.Map{"message": "User deleted successfully"})
	}
}
