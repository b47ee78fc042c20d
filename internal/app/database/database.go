package database

import (
	"fmt"

	"enact/internal/app/model"
	"enact/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func dialector(cfg DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSqlite:
		return sqlite.Open(cfg.ConnectionString), nil
	case DriverPostgres:
		return postgres.Open(cfg.ConnectionString), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open connects and, when configured, runs migrations.
func Open(cfg DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	if log == nil {
		log = logger.Nop()
	}
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	log.Infof("Establishing connection to %s database", cfg.Driver)
	db, err := gorm.Open(d, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("cannot establish database connection: %w", err)
	}

	if cfg.Migrate {
		if err := AutoMigrate(db, log); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	log.Info("Running migrations for tables...")
	err := db.AutoMigrate(
		&model.Schema{},
		&model.Attestation{},
		&model.OutboxEvent{},
		&model.NetworkKey{},
	)
	if err != nil {
		return fmt.Errorf("migrating database failed: %w", err)
	}
	log.Info("All tables created (or already exist).")
	return nil
}
