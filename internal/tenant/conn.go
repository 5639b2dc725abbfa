package tenant

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Conn is a live connection to one tenant database. Connections are opened
// fresh per logical operation and never cached or shared across requests;
// the caller owns the Conn and must Close it on every exit path.
type Conn struct {
	db *gorm.DB
}

// DB exposes the underlying gorm handle for raw tenant queries
func (c *Conn) DB() *gorm.DB {
	return c.db
}

// Close releases the underlying connection
func (c *Conn) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get tenant database instance: %w", err)
	}
	return sqlDB.Close()
}

// Opener opens a connection for a DSN. Swapped out by tests.
type Opener func(dsn string) (*Conn, error)

// OpenDSN is the default Opener: a fresh gorm connection over the Postgres
// driver, simple protocol, quiet logger. Tenant access is raw SQL only, so
// the gorm statement logger stays at error level regardless of environment.
func OpenDSN(dsn string) (*Conn, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tenant database: %w", err)
	}
	return &Conn{db: db}, nil
}
