package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"voltfox-backend/config"
	"voltfox-backend/internal/model"
)

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{
		&model.User{},
		&model.Device{},
		&model.Battery{},
		&model.HistorySnapshot{},
		&model.NotificationPreferences{},
		&model.PushSubscription{},
		&model.NotificationLog{},
	}
}

// Init opens the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		dialector = postgres.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info("running database migrations", zap.String("driver", cfg.Driver))
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Driver == "postgres" {
		if err := applyPostgresDDL(db); err != nil {
			log.Warn("failed to apply postgres constraints, continuing without them", zap.Error(err))
		}
	} else {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyPostgresDDL adds range checks AutoMigrate cannot express.
func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		"ALTER TABLE devices DROP CONSTRAINT IF EXISTS devices_charge_range;",
		"ALTER TABLE devices ADD CONSTRAINT devices_charge_range CHECK (current_charge BETWEEN 0 AND 100 AND health BETWEEN 0 AND 100);",
		"ALTER TABLE devices DROP CONSTRAINT IF EXISTS devices_discharge_rate_nonneg;",
		"ALTER TABLE devices ADD CONSTRAINT devices_discharge_rate_nonneg CHECK (discharge_rate >= 0);",
		"ALTER TABLE batteries DROP CONSTRAINT IF EXISTS batteries_charge_range;",
		"ALTER TABLE batteries ADD CONSTRAINT batteries_charge_range CHECK (current_charge BETWEEN 0 AND 100 AND health BETWEEN 0 AND 100);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
