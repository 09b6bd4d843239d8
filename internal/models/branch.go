package models

import "time"

type Branch struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;uniqueIndex"`
	Location  string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}
