package database

import (
	"fmt"
	"time"

	"tenant-service/internal/model"
	"tenant-service/pkg/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db *gorm.DB
)

// InitDB initializes the central registry database connection
func InitDB(cfg *config.Config, log *zap.Logger) error {
	// Set up GORM logger configuration
	var logLevel logger.LogLevel
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Error
	}

	// Override log level if explicitly set in config
	switch cfg.Registry.LogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	// Build DSN from config
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Registry.Host,
		cfg.Registry.Port,
		cfg.Registry.User,
		cfg.Registry.Password,
		cfg.Registry.Name,
		cfg.Registry.SSLMode,
	)

	// Configure Postgres options
	pgConfig := postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	// Configure GORM and open connection
	var err error
	db, err = gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to registry database: %w", err)
	}

	// Configure connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool parameters
	sqlDB.SetMaxIdleConns(cfg.Registry.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Registry.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Registry.ConnMaxLifetime)

	// Run migrations for the registry models only. Tenant databases have a
	// fixed hand-written schema and are never touched by AutoMigrate.
	start := time.Now()
	log.Info("Starting registry database migration...")

	if err := db.AutoMigrate(
		&model.Company{},
		&model.User{},
	); err != nil {
		log.Error("Registry database migration failed", zap.Error(err))
		return fmt.Errorf("failed to migrate registry schema: %w", err)
	}

	log.Info("Registry database migration completed successfully",
		zap.Duration("duration", time.Since(start)))

	return nil
}

// GetDB returns a reference to the registry database instance
func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the registry database instance; used by tests
func SetDB(d *gorm.DB) {
	db = d
}
