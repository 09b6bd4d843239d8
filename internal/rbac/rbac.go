// Package rbac maps permission keys to the roles allowed to perform them and
// resolves role inheritance: a ceo may do anything a manager may, and a
// manager anything a sales agent may.
package rbac

import (
	"errors"
	"fmt"
	"sort"

	"gcdl-backend/internal/models"
)

type Permission string

const (
	CreateSale        Permission = "CREATE_SALE"
	ViewAllSales      Permission = "VIEW_ALL_SALES"
	ViewOwnSales      Permission = "VIEW_OWN_SALES"
	UpdateSale        Permission = "UPDATE_SALE"
	DeleteSale        Permission = "DELETE_SALE"
	CreateUser        Permission = "CREATE_USER"
	ViewUsers         Permission = "VIEW_USERS"
	ManageUsers       Permission = "MANAGE_USERS"
	ViewStock         Permission = "VIEW_STOCK"
	UpdateStock       Permission = "UPDATE_STOCK"
	DeleteStock       Permission = "DELETE_STOCK"
	CreateProcurement Permission = "CREATE_PROCUREMENT"
	ViewProcurement   Permission = "VIEW_PROCUREMENT"
	CreateCreditSale  Permission = "CREATE_CREDIT_SALE"
	ViewCreditSales   Permission = "VIEW_CREDIT_SALES"
	UpdateCreditSale  Permission = "UPDATE_CREDIT_SALE"
	ManageBranches    Permission = "MANAGE_BRANCHES"
	ManageProduce     Permission = "MANAGE_PRODUCE"
	ViewDashboard     Permission = "VIEW_DASHBOARD"
	ViewAuditLog      Permission = "VIEW_AUDIT_LOG"
)

var ErrUnknownPermission = errors.New("unknown permission")

// Table is immutable after construction and safe for concurrent use.
type Table struct {
	allowed map[Permission][]models.UserRole
	closure map[models.UserRole]map[models.UserRole]struct{}
}

// NewTable validates perms and hierarchy. hierarchy maps a role to the roles
// it directly inherits from; the transitive closure is computed here.
func NewTable(perms map[Permission][]models.UserRole, hierarchy map[models.UserRole][]models.UserRole) (*Table, error) {
	t := &Table{
		allowed: make(map[Permission][]models.UserRole, len(perms)),
		closure: make(map[models.UserRole]map[models.UserRole]struct{}),
	}

	for key, roles := range perms {
		if len(roles) == 0 {
			return nil, fmt.Errorf("permission %s has no roles", key)
		}
		for _, r := range roles {
			if !r.Valid() {
				return nil, fmt.Errorf("permission %s references unknown role %q", key, r)
			}
		}
		t.allowed[key] = append([]models.UserRole(nil), roles...)
	}

	for role, parents := range hierarchy {
		if !role.Valid() {
			return nil, fmt.Errorf("hierarchy references unknown role %q", role)
		}
		for _, p := range parents {
			if !p.Valid() {
				return nil, fmt.Errorf("hierarchy references unknown role %q", p)
			}
		}
	}

	for _, role := range []models.UserRole{models.RoleCEO, models.RoleManager, models.RoleSalesAgent} {
		set := map[models.UserRole]struct{}{}
		stack := []models.UserRole{role}
		for len(stack) > 0 {
			r := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, seen := set[r]; seen {
				continue
			}
			set[r] = struct{}{}
			stack = append(stack, hierarchy[r]...)
		}
		t.closure[role] = set
	}

	return t, nil
}

// AllowedRoles returns the roles listed for key, without inheritance.
func (t *Table) AllowedRoles(key Permission) ([]models.UserRole, error) {
	roles, ok := t.allowed[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPermission, key)
	}
	return append([]models.UserRole(nil), roles...), nil
}

// IsAllowed reports whether role, or any role it inherits from, is listed
// for key. Unknown keys and unknown roles are never allowed.
func (t *Table) IsAllowed(role models.UserRole, key Permission) bool {
	roles, ok := t.allowed[key]
	if !ok {
		return false
	}
	inherited := t.closure[role]
	for _, r := range roles {
		if _, ok := inherited[r]; ok {
			return true
		}
	}
	return false
}

// Inherits reports whether role includes other in its closure.
func (t *Table) Inherits(role, other models.UserRole) bool {
	_, ok := t.closure[role][other]
	return ok
}

// MustKey panics when key is not in the table. It is meant for route
// registration so a typo fails at startup instead of on a request.
func (t *Table) MustKey(key Permission) Permission {
	if _, ok := t.allowed[key]; !ok {
		panic(fmt.Sprintf("rbac: %v: %s", ErrUnknownPermission, key))
	}
	return key
}

// Keys lists every permission key in sorted order.
func (t *Table) Keys() []Permission {
	keys := make([]Permission, 0, len(t.allowed))
	for k := range t.allowed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
