package rbac

import "gcdl-backend/internal/models"

var (
	agent   = models.RoleSalesAgent
	manager = models.RoleManager
	ceo     = models.RoleCEO
)

func defaultPermissions() map[Permission][]models.UserRole {
	return map[Permission][]models.UserRole{
		CreateSale:   {agent, manager},
		ViewAllSales: {manager, ceo},
		ViewOwnSales: {agent},
		UpdateSale:   {manager},
		DeleteSale:   {ceo},

		CreateUser:  {ceo},
		ViewUsers:   {manager, ceo},
		ManageUsers: {ceo},

		ViewStock:   {agent, manager, ceo},
		UpdateStock: {manager, ceo},
		DeleteStock: {ceo},

		CreateProcurement: {manager},
		ViewProcurement:   {manager, ceo},

		CreateCreditSale: {agent, manager},
		ViewCreditSales:  {agent, manager, ceo},
		UpdateCreditSale: {manager},

		ManageBranches: {manager, ceo},
		ManageProduce:  {manager, ceo},
		ViewDashboard:  {manager, ceo},
		ViewAuditLog:   {ceo},
	}
}

func defaultHierarchy() map[models.UserRole][]models.UserRole {
	return map[models.UserRole][]models.UserRole{
		ceo:     {manager},
		manager: {agent},
	}
}

// Default builds the production table.
func Default() (*Table, error) {
	return NewTable(defaultPermissions(), defaultHierarchy())
}

// MustDefault is Default for program startup.
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}
