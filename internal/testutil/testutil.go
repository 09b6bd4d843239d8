// Package testutil provides in-memory databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"gcdl-backend/internal/database"
	"gcdl-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory SQLite database with the full schema. The
// pool is pinned to one connection so every statement sees the same memory
// database; code under test must use the transaction handle inside a
// transaction.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(Logger()))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Logger discards everything.
func Logger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func Branch(t *testing.T, db *gorm.DB, name string) models.Branch {
	t.Helper()
	b := models.Branch{Name: name, Location: name + " town"}
	require.NoError(t, db.Create(&b).Error)
	return b
}

func Produce(t *testing.T, db *gorm.DB, name, typ string) models.Produce {
	t.Helper()
	p := models.Produce{Name: name, Type: typ}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// User inserts a user with a throwaway password hash.
func User(t *testing.T, db *gorm.DB, email string, role models.UserRole, branchID *uint) models.User {
	t.Helper()
	u := models.User{
		Username:     email,
		Email:        email,
		PasswordHash: "$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva",
		Role:         role,
		BranchID:     branchID,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func Stock(t *testing.T, db *gorm.DB, produceID, branchID uint, qty string) models.Stock {
	t.Helper()
	s := models.Stock{ProduceID: produceID, BranchID: branchID, Quantity: Dec(qty)}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func Ptr[T any](v T) *T { return &v }
