package persistence

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/servicedesk/internal/infrastructure/config"
	"github.com/erp/servicedesk/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSQLiteDB opens a private in-memory database with the full schema
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := NewDatabaseWithCustomLogger(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: ":memory:",
	}, logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db.DB
}

// newMockGormDB returns a PostgreSQL-dialect GORM handle over sqlmock
// go-sqlmock's option type is unexported, so the helper takes the only
// option the tests need (ping monitoring) and builds it here
func newMockGormDB(t *testing.T, monitorPings ...bool) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(len(monitorPings) > 0 && monitorPings[0]))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestNewDatabaseWithCustomLogger(t *testing.T) {
	t.Run("sqlite creates the schema", func(t *testing.T) {
		db := newSQLiteDB(t)

		for _, model := range models.All() {
			assert.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := NewDatabaseWithCustomLogger(&config.DatabaseConfig{Driver: "mysql"}, logger.Default)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t, true)
		defer mockDB.Close()

		mock.ExpectPing()

		db := &Database{DB: gormDB, Driver: config.DriverPostgres}
		assert.NoError(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed ping", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t, true)
		defer mockDB.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		db := &Database{DB: gormDB, Driver: config.DriverPostgres}
		assert.Error(t, db.Ping())
	})
}

func TestDatabase_Close(t *testing.T) {
	gormDB, mock, _ := newMockGormDB(t)
	mock.ExpectClose()

	db := &Database{DB: gormDB}
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
