package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restobar/config"
	"restobar/model"
	"restobar/realtime"
)

// InitDatabase connects to Postgres, registers the change feed plugin and
// migrates the schema.
func InitDatabase(cfg config.Config, hub *realtime.Hub) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger:                 logger.Default.LogMode(LogLevel(cfg.DBLogLevel)),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if hub != nil {
		if err := db.Use(realtime.NewPlugin(hub, model.All()...)); err != nil {
			return nil, fmt.Errorf("register change feed: %w", err)
		}
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Println("Database connected and migrated")
	return db, nil
}

// LogLevel maps a config string to the gorm log level. Unknown values fall
// back to warnings.
func LogLevel(s string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}
