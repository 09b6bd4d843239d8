package rbac

import (
	"testing"

	"gcdl-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchyClosure(t *testing.T) {
	table := MustDefault()

	assert.True(t, table.Inherits(models.RoleCEO, models.RoleSalesAgent))
	assert.True(t, table.Inherits(models.RoleCEO, models.RoleManager))
	assert.True(t, table.Inherits(models.RoleManager, models.RoleSalesAgent))
	assert.False(t, table.Inherits(models.RoleManager, models.RoleCEO))
	assert.False(t, table.Inherits(models.RoleSalesAgent, models.RoleManager))
}

func TestIsAllowedUsesInheritance(t *testing.T) {
	table := MustDefault()

	cases := []struct {
		role models.UserRole
		key  Permission
		want bool
	}{
		{models.RoleSalesAgent, CreateSale, true},
		{models.RoleManager, CreateSale, true},
		{models.RoleCEO, CreateSale, true},
		{models.RoleSalesAgent, ViewAllSales, false},
		{models.RoleManager, ViewAllSales, true},
		{models.RoleCEO, CreateProcurement, true},
		{models.RoleSalesAgent, CreateProcurement, false},
		{models.RoleSalesAgent, CreateUser, false},
		{models.RoleManager, CreateUser, false},
		{models.RoleCEO, CreateUser, true},
		{models.RoleManager, ViewUsers, true},
		{models.RoleManager, ManageUsers, false},
		{models.RoleManager, DeleteStock, false},
		{models.RoleCEO, DeleteStock, true},
		{models.RoleSalesAgent, ViewStock, true},
		{models.RoleCEO, ViewOwnSales, true},
		{models.RoleManager, ViewAuditLog, false},
		{models.UserRole("cashier"), ViewStock, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, table.IsAllowed(tc.role, tc.key), "%s %s", tc.role, tc.key)
	}
}

func TestUnknownKey(t *testing.T) {
	table := MustDefault()

	_, err := table.AllowedRoles("LAUNCH_ROCKETS")
	assert.ErrorIs(t, err, ErrUnknownPermission)
	assert.False(t, table.IsAllowed(models.RoleCEO, "LAUNCH_ROCKETS"))
	assert.Panics(t, func() { table.MustKey("LAUNCH_ROCKETS") })
	assert.NotPanics(t, func() { table.MustKey(CreateSale) })
}

func TestAllowedRolesIsACopy(t *testing.T) {
	table := MustDefault()

	roles, err := table.AllowedRoles(CreateSale)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.UserRole{models.RoleSalesAgent, models.RoleManager}, roles)

	roles[0] = models.RoleCEO
	again, _ := table.AllowedRoles(CreateSale)
	assert.NotContains(t, again, models.RoleCEO)
}

func TestNewTableRejectsUnknownRoles(t *testing.T) {
	_, err := NewTable(map[Permission][]models.UserRole{CreateSale: {"cashier"}}, nil)
	assert.Error(t, err)

	_, err = NewTable(map[Permission][]models.UserRole{CreateSale: {}}, nil)
	assert.Error(t, err)

	_, err = NewTable(nil, map[models.UserRole][]models.UserRole{"owner": {models.RoleCEO}})
	assert.Error(t, err)
}

func TestKeysSorted(t *testing.T) {
	keys := MustDefault().Keys()
	require.NotEmpty(t, keys)
	for i := 1; i < len(keys); i++ {
		assert.Less(t, string(keys[i-1]), string(keys[i]))
	}
}
