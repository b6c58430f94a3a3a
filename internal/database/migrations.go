package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all database migrations
func GetMigrations(dbType string) []Migration {
	if dbType == "postgres" {
		return getPostgresMigrations()
	}
	return getSQLiteMigrations()
}

func getPostgresMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id VARCHAR(255) PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				first_name VARCHAR(255) NOT NULL DEFAULT '',
				last_name VARCHAR(255) NOT NULL DEFAULT '',
				tier VARCHAR(50) NOT NULL DEFAULT 'free',
				query_count INTEGER NOT NULL DEFAULT 0,
				query_limit INTEGER NOT NULL DEFAULT 5,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create conversations and messages tables",
			SQL: `CREATE TABLE IF NOT EXISTS conversations (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE TABLE IF NOT EXISTS messages (
				id UUID PRIMARY KEY,
				conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				role VARCHAR(50) NOT NULL,
				content TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     3,
			Description: "Create documents table",
			SQL: `CREATE TABLE IF NOT EXISTS documents (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				storage_key TEXT NOT NULL,
				filename TEXT NOT NULL,
				size BIGINT NOT NULL DEFAULT 0,
				uploaded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     4,
			Description: "Create subscriptions mirror table",
			SQL: `CREATE TABLE IF NOT EXISTS subscriptions (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
				current_period_end BIGINT NOT NULL DEFAULT 0,
				canceled_at BIGINT,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     5,
			Description: "Create deletion audit table",
			SQL: `CREATE TABLE IF NOT EXISTS deletion_audit (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL,
				exported BOOLEAN NOT NULL DEFAULT FALSE,
				deleted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     6,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id);
				CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
				CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id);
				CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);
				CREATE INDEX IF NOT EXISTS idx_deletion_audit_deleted_at ON deletion_audit(deleted_at)`,
		},
	}
}

func getSQLiteMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				tier TEXT NOT NULL DEFAULT 'free',
				query_count INTEGER NOT NULL DEFAULT 0,
				query_limit INTEGER NOT NULL DEFAULT 5,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     2,
			Description: "Create conversations and messages tables",
			SQL: `CREATE TABLE IF NOT EXISTS conversations (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE TABLE IF NOT EXISTS messages (
				id TEXT PRIMARY KEY,
				conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				role TEXT NOT NULL,
				content TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     3,
			Description: "Create documents table",
			SQL: `CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				storage_key TEXT NOT NULL,
				filename TEXT NOT NULL,
				size INTEGER NOT NULL DEFAULT 0,
				uploaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     4,
			Description: "Create subscriptions mirror table",
			SQL: `CREATE TABLE IF NOT EXISTS subscriptions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				status TEXT NOT NULL,
				cancel_at_period_end INTEGER NOT NULL DEFAULT 0,
				current_period_end INTEGER NOT NULL DEFAULT 0,
				canceled_at INTEGER,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     5,
			Description: "Create deletion audit table",
			SQL: `CREATE TABLE IF NOT EXISTS deletion_audit (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				email TEXT NOT NULL,
				exported INTEGER NOT NULL DEFAULT 0,
				deleted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     6,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id);
				CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
				CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id);
				CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);
				CREATE INDEX IF NOT EXISTS idx_deletion_audit_deleted_at ON deletion_audit(deleted_at)`,
		},
	}
}

// createMigrationsTable creates the schema_migrations bookkeeping table
func createMigrationsTable(db *sql.DB, dbType string) error {
	query := `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if dbType == "postgres" {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`
	}
	_, err := db.Exec(query)
	return err
}

// getAppliedMigrations returns the set of already-applied migration versions
func getAppliedMigrations(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// recordMigration records that a migration has been applied
func recordMigration(db *sql.DB, dbType string, version int) error {
	query := "INSERT INTO schema_migrations (version) VALUES (?)"
	if dbType == "postgres" {
		query = "INSERT INTO schema_migrations (version) VALUES ($1)"
	}
	_, err := db.Exec(query, version)
	return err
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB, dbType string) error {
	if err := createMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %v", err)
	}

	for _, migration := range GetMigrations(dbType) {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Applying migration %d: %s", migration.Version, migration.Description)

		// Split SQL by semicolon and execute each statement
		statements := strings.Split(migration.SQL, ";")
		for _, stmt := range statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to apply migration %d: %v", migration.Version, err)
			}
		}

		if err := recordMigration(db, dbType, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %v", migration.Version, err)
		}
	}

	return nil
}
