package models

import "time"

type UserRole string

const (
	RoleCEO        UserRole = "ceo"
	RoleManager    UserRole = "manager"
	RoleSalesAgent UserRole = "sales_agent"
)

// Valid reports whether r is one of the three known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleCEO, RoleManager, RoleSalesAgent:
		return true
	}
	return false
}

// RequiresBranch is true for every role below ceo.
func (r UserRole) RequiresBranch() bool {
	return r == RoleManager || r == RoleSalesAgent
}

type User struct {
	ID           uint `gorm:"primaryKey"`
	BranchID     *uint
	Branch       *Branch
	Username     string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
