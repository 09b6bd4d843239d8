package models

import (
	"strings"
	"time"
)

// ProduceTypes is the fixed catalog of produce the company trades.
var ProduceTypes = []string{"beans", "grain maize", "cowpeas", "groundnuts", "rice", "soybeans"}

// IsProduceType matches t against the catalog, ignoring case and surrounding space.
func IsProduceType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	for _, known := range ProduceTypes {
		if known == t {
			return true
		}
	}
	return false
}

type Produce struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;uniqueIndex"`
	Type      string `gorm:"size:50"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
