package auth

import (
	"context"
	"errors"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxBranchIDKey = "branch_id"
)

// Identity is the authenticated caller. It comes from a verified token and
// never from a request body.
type Identity struct {
	UserID   uint
	Role     models.UserRole
	BranchID *uint
}

// SeesAllBranches is true for roles that are not confined to one branch.
func (i Identity) SeesAllBranches() bool {
	return i.Role == models.RoleManager || i.Role == models.RoleCEO
}

// HasBranch reports whether the caller is bound to a branch.
func (i Identity) HasBranch() bool {
	return i.BranchID != nil
}

// ResolveBranch picks the branch a write applies to: callers bound to a
// branch always use their own, branchless callers must name one.
func (i Identity) ResolveBranch(requested *uint) (uint, error) {
	if i.BranchID != nil {
		return *i.BranchID, nil
	}
	if requested == nil || *requested == 0 {
		return 0, apperr.Validation("branch_id is required")
	}
	return *requested, nil
}

// TargetBranch picks the branch an administrative write applies to. Roles
// that see every branch may name any branch and otherwise fall back to
// their own; a sales agent is always confined to its own branch.
func (i Identity) TargetBranch(requested *uint) (uint, error) {
	if requested != nil && *requested != 0 && (i.SeesAllBranches() || i.BranchID == nil) {
		return *requested, nil
	}
	if i.BranchID != nil {
		return *i.BranchID, nil
	}
	return 0, apperr.Validation("branch_id is required")
}

// ReadScope is the branch filter for listings: nil means every branch.
func (i Identity) ReadScope() (*uint, error) {
	if i.SeesAllBranches() {
		return nil, nil
	}
	if i.BranchID == nil {
		return nil, apperr.Forbidden("no branch assigned to this account")
	}
	return i.BranchID, nil
}

// Refresh reloads the caller's role and branch from the user row. A token
// keeps the branch it was issued with, so writes that consume a branch's
// stock resolve it from here once an account may have been reassigned.
func Refresh(ctx context.Context, db *gorm.DB, who Identity) (Identity, *models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).First(&user, who.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, nil, apperr.Unauthenticated("account no longer exists")
		}
		return Identity{}, nil, apperr.FromDB(err, "")
	}
	return Identity{UserID: user.ID, Role: user.Role, BranchID: user.BranchID}, &user, nil
}

func setIdentity(c *fiber.Ctx, claims *Claims) {
	c.Locals(CtxUserIDKey, claims.UserID)
	c.Locals(CtxUserRoleKey, claims.Role)
	c.Locals(CtxBranchIDKey, claims.BranchID)
}

// IdentityFrom reads the identity stored by the JWT middleware.
func IdentityFrom(c *fiber.Ctx) (Identity, bool) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok || userID == 0 {
		return Identity{}, false
	}
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return Identity{}, false
	}
	branchID, _ := c.Locals(CtxBranchIDKey).(*uint)
	return Identity{UserID: userID, Role: role, BranchID: branchID}, true
}

// MustIdentity is IdentityFrom for routes behind JWTMiddleware.
func MustIdentity(c *fiber.Ctx) (Identity, error) {
	id, ok := IdentityFrom(c)
	if !ok {
		return Identity{}, apperr.Unauthenticated("authentication required")
	}
	return id, nil
}
