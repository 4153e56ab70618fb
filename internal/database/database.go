package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fundmatch-labs/fundmatch/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the gorm connection and owns schema migration.
type Database struct {
	DB *gorm.DB
}

// NewPostgresDatabase opens a Postgres-backed database. Postgres is the
// production target: the execution lock manager relies on its
// transaction-scoped advisory locks.
func NewPostgresDatabase(dsn string) (*Database, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return initDatabase(db)
}

// NewSqliteDatabase opens a SQLite-backed database, used for development and
// tests. Lock semantics degrade to the lock-table fallback.
func NewSqliteDatabase(dbPath string) (*Database, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return initDatabase(db)
}

func initDatabase(db *gorm.DB) (*Database, error) {
	database := &Database{DB: db}
	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return database, nil
}

// newGormLogger configures gorm to log only errors and slow queries.
func newGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      false,
			Colorful:                  false,
		},
	)
}

func (d *Database) migrate() error {
	return d.DB.AutoMigrate(
		&models.User{},
		&models.Campaign{},
		&models.Round{},
		&models.RoundCampaign{},
		&models.Payment{},
		&models.WithdrawalRequest{},
		&models.ExecutionLock{},
	)
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
