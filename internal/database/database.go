package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"pcbuilder/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize opens the catalog database. DSNs starting with postgres:// or
// postgresql:// use the Postgres driver, sqlite:// opens a local file, and
// anything else is treated as a MySQL DSN.
func Initialize(databaseURL string, verbose bool) (*gorm.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	gormLogger := logger.New(
		log.New(os.Stdout, "[DB] ", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(dialector(databaseURL), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database initialized successfully")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func dialector(databaseURL string) gorm.Dialector {
	if path, ok := strings.CutPrefix(databaseURL, "sqlite://"); ok {
		return sqlite.Open(path)
	}
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgres.Open(databaseURL)
	}
	return mysql.Open(databaseURL)
}

// Migrate creates missing tables and columns.
func Migrate(db *gorm.DB) error {
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
