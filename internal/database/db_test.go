package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	logger, _ := test.NewNullLogger()
	cfg := GormConfig(logger)
	cfg.DisableAutomaticPing = true
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg)
	require.NoError(t, err)
	return db, mock
}

func TestPing(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectPing()

	assert.NoError(t, Ping(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPingFailure(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	assert.Error(t, Ping(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormConfigTranslatesErrors(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.True(t, GormConfig(logger).TranslateError)
}
