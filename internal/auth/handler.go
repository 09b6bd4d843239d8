package auth

import (
	"strings"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/audit"
	"gcdl-backend/internal/httpx"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/rbac"
	"gcdl-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username string          `json:"username" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email,max=100"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ceo manager sales_agent"`
	BranchID *uint           `json:"branch_id"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        uint            `json:"user_id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	BranchID  *uint           `json:"branch_id"`
	CreatedAt string          `json:"created_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		BranchID:  u.BranchID,
		CreatedAt: u.CreatedAt.Format(httpx.TimestampLayout),
	}
}

// ValidateRoleBranch enforces that every role below ceo is bound to an
// existing branch and that a ceo is not.
func ValidateRoleBranch(tx *gorm.DB, role models.UserRole, branchID *uint) error {
	if !role.Valid() {
		return apperr.Validation("role must be one of ceo, manager, sales_agent")
	}
	if !role.RequiresBranch() {
		if branchID != nil {
			return apperr.Validation("a ceo is not assigned to a branch")
		}
		return nil
	}
	if branchID == nil || *branchID == 0 {
		return apperr.Validation("branch_id is required for role %s", role)
	}
	var n int64
	if err := tx.Model(&models.Branch{}).Where("id = ?", *branchID).Count(&n).Error; err != nil {
		return apperr.Storage("check branch", err)
	}
	if n == 0 {
		return apperr.NotFound("branch %d not found", *branchID)
	}
	return nil
}

// RegisterHandler creates a user. While the user table is empty anyone may
// register the first account, which must be a ceo; afterwards the caller
// needs CREATE_USER.
func RegisterHandler(db *gorm.DB, table *rbac.Table) fiber.Handler {
	table.MustKey(rbac.CreateUser)
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.Username = strings.TrimSpace(body.Username)
		if err := validation.Struct(body); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return apperr.Storage("hash password", err)
		}

		caller, authenticated := IdentityFrom(c)
		user := models.User{
			Username:     body.Username,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         body.Role,
			BranchID:     body.BranchID,
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := lockRegistration(tx); err != nil {
				return err
			}
			var existing int64
			if err := tx.Model(&models.User{}).Count(&existing).Error; err != nil {
				return apperr.Storage("count users", err)
			}
			if existing == 0 {
				if body.Role != models.RoleCEO {
					return apperr.Validation("the first account must be a ceo")
				}
			} else {
				if !authenticated {
					return apperr.Unauthenticated("authentication required")
				}
				if !table.IsAllowed(caller.Role, rbac.CreateUser) {
					return apperr.Forbidden("insufficient permissions")
				}
			}

			if err := ValidateRoleBranch(tx, body.Role, body.BranchID); err != nil {
				return err
			}

			var dup int64
			if err := tx.Model(&models.User{}).Where("email = ?", body.Email).Count(&dup).Error; err != nil {
				return apperr.Storage("check email", err)
			}
			if dup > 0 {
				return apperr.Conflict("a user with email %s already exists", body.Email)
			}

			if err := tx.Create(&user).Error; err != nil {
				return apperr.FromDB(err, "")
			}
			return audit.WriteLog(tx, audit.LogOptions{
				BranchID:    user.BranchID,
				UserID:      actorID(caller, user.ID),
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionCreate,
				Description: "user registered",
				After:       NewUserResponse(&user),
			})
		})
		if err != nil {
			return apperr.FromDB(err, "")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"user_id": user.ID,
			"message": "User registered successfully",
			"user":    NewUserResponse(&user),
		})
	}
}

// registrationLockKey names the advisory lock held while an account is
// created, so two requests against an empty user table cannot both
// become the first ceo.
const registrationLockKey int64 = 0x6763646c0001

// lockRegistration takes a transaction-scoped advisory lock on postgres.
// SQLite allows a single writer already.
func lockRegistration(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", registrationLockKey).Error; err != nil {
		return apperr.Storage("lock registration", err)
	}
	return nil
}

func actorID(caller Identity, self uint) uint {
	if caller.UserID != 0 {
		return caller.UserID
	}
	return self
}

func LoginHandler(db *gorm.DB, tm *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if err := validation.Struct(body); err != nil {
			return err
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).Where("email = ?", body.Email).First(&user).Error; err != nil {
			if apperr.Is(apperr.FromDB(err, ""), apperr.KindNotFound) {
				return apperr.Unauthenticated("invalid credentials")
			}
			return apperr.Storage("load user", err)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return apperr.Unauthenticated("invalid credentials")
		}

		token, exp, err := tm.Generate(&user)
		if err != nil {
			return apperr.Storage("sign token", err)
		}

		return c.JSON(fiber.Map{
			"token":      token,
			"expires_at": exp.UTC().Format(httpx.TimestampLayout),
			"user":       NewUserResponse(&user),
		})
	}
}

func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := MustIdentity(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).Preload("Branch").First(&user, id.UserID).Error; err != nil {
			return apperr.FromDB(err, "user no longer exists")
		}

		resp := fiber.Map{"user": NewUserResponse(&user)}
		if user.Branch != nil {
			resp["branch"] = fiber.Map{
				"id":       user.Branch.ID,
				"name":     user.Branch.Name,
				"location": user.Branch.Location,
			}
		}
		return c.JSON(resp)
	}
}
