package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/myaibookkeeper/bookkeeper/internal/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"
)

var dbConn *sql.DB
var dbType string

// Init initializes the database connection and schema
func Init(cfg *config.Config) error {
	if dbConn != nil {
		return nil
	}

	log.Printf("Initializing database, type: %s", cfg.Database.Type)

	var db *sql.DB
	var err error

	switch cfg.Database.Type {
	case "postgres":
		db, err = initPostgreSQL(cfg)
	case "sqlite", "":
		db, err = initSQLite(cfg)
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	if err != nil {
		return err
	}

	// Test the connection with retries; the volume may still be mounting
	var lastErr error
	for i := 0; i < cfg.Database.MaxRetries; i++ {
		if lastErr = db.Ping(); lastErr == nil {
			break
		}
		log.Printf("Database ping attempt %d/%d failed: %v", i+1, cfg.Database.MaxRetries, lastErr)
		time.Sleep(time.Duration(cfg.Database.RetryDelay) * time.Second)
	}
	if lastErr != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %v", lastErr)
	}

	log.Printf("Running database migrations")
	if err = RunMigrations(db, cfg.Database.Type); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %v", err)
	}

	dbConn = db
	dbType = cfg.Database.Type
	if dbType == "" {
		dbType = "sqlite"
	}
	log.Printf("Database initialized successfully (type=%s)", dbType)
	return nil
}

// initPostgreSQL initializes a PostgreSQL connection
func initPostgreSQL(cfg *config.Config) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database URL is required for postgres")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Printf("PostgreSQL connection configured successfully")
	return db, nil
}

// initSQLite initializes a SQLite connection
func initSQLite(cfg *config.Config) (*sql.DB, error) {
	log.Printf("Initializing SQLite connection at path: %s", cfg.Database.Path)

	dataDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := cfg.Database.Path + "?_foreign_keys=on"
	if cfg.Database.WALMode {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %v", err)
	}

	return db, nil
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return dbConn
}

// Close closes the database connection
func Close() error {
	if dbConn == nil {
		return nil
	}
	err := dbConn.Close()
	dbConn = nil
	return err
}
