package models

import "github.com/shopspring/decimal"

func init() {
	// Tonnage and money go out as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&Branch{},
		&User{},
		&Produce{},
		&Stock{},
		&Procurement{},
		&Sale{},
		&CreditSale{},
		&AuditLog{},
	}
}

// Decimal places stored by the tonnage and money columns.
const (
	TonnageScale = 3
	MoneyScale   = 2
)
