package tenant

import (
	"testing"
	"time"

	"tenant-service/pkg/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newMockGorm bridges sqlmock into a gorm handle. Version probing and the
// implicit transaction are disabled so expectations map one-to-one onto the
// statements under test.
func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return gdb, mock
}

// newMockConn wraps a mocked gorm handle as a tenant connection
func newMockConn(t *testing.T) (*Conn, sqlmock.Sqlmock) {
	t.Helper()
	gdb, mock := newMockGorm(t)
	return &Conn{db: gdb}, mock
}

// testTenantConfig returns provisioning configuration suitable for tests
func testTenantConfig() config.TenantDBConfig {
	return config.TenantDBConfig{
		DefaultHost:   "localhost",
		DefaultPort:   5432,
		DefaultUser:   "postgres",
		AdminDatabase: "postgres",
		SSLMode:       "disable",
		OpTimeout:     5 * time.Second,
	}
}
