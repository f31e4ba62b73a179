package database

import (
	"context"
	"fmt"
)

// Target schema. Tables are created with the full column set; the additive
// migrations below only matter for stores created by older builds.
var _createStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		full_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id TEXT,
		project_name TEXT NOT NULL,
		client_contact TEXT NOT NULL,
		technical_task TEXT,
		status TEXT DEFAULT 'New',
		price REAL,
		deadline_days INTEGER,
		notes TEXT,
		date_created DATETIME DEFAULT CURRENT_TIMESTAMP,
		days_passed INTEGER DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		token TEXT UNIQUE NOT NULL,
		user_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL
	)`,
}

// Additive column migrations for stores that predate these columns.
// A "duplicate column name" failure is the correct terminal state, not an
// error.
var _additiveMigrations = []string{
	`ALTER TABLE clients ADD COLUMN client_id TEXT`,
	`ALTER TABLE clients ADD COLUMN deadline_days INTEGER`,
	`ALTER TABLE clients ADD COLUMN days_passed INTEGER DEFAULT 0`,
	`ALTER TABLE users ADD COLUMN full_name TEXT`,
}

// The partial unique index backs human-readable id allocation: a lost
// count-then-insert race surfaces as a unique violation and is retried.
// Legacy rows with a NULL client_id stay readable.
const _clientIDIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_clients_client_id
	ON clients(client_id) WHERE client_id IS NOT NULL`

// EnsureSchema brings the store to the target schema. It is idempotent and
// safe to run on every start; any failure other than an already-applied
// additive migration is returned and should abort startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	logger := db.Logger.With("query", "ensureSchema")

	for _, stmt := range _createStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	for _, stmt := range _additiveMigrations {
		_, err := db.ExecContext(ctx, stmt)
		switch {
		case isDuplicateColumn(err):
			logger.Debug("additive migration already applied", "sql", stmt)
		case err != nil:
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, _clientIDIndex); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	logger.Debug("schema ensured")

	return nil
}

type MigrationStep struct {
	Statement string `json:"statement"`
	Applied   bool   `json:"applied"`
	Note      string `json:"note,omitempty"`
}

// Migrate replays the additive migrations and reports what each one did.
// Backs the administrative migrate endpoint.
func (db *DB) Migrate(ctx context.Context) ([]MigrationStep, error) {
	logger := db.Logger.With("query", "migrate")

	report := make([]MigrationStep, 0, len(_additiveMigrations))
	for _, stmt := range _additiveMigrations {
		step := MigrationStep{Statement: stmt}

		_, err := db.ExecContext(ctx, stmt)
		switch {
		case isDuplicateColumn(err):
			step.Note = "column already exists"
		case err != nil:
			logger.Warn("failed query execute", "sql", stmt, "error", err)
			return nil, err
		default:
			step.Applied = true
		}

		report = append(report, step)
	}

	logger.Debug("migrations replayed", "countSteps", len(report))

	return report, nil
}

// Recreate drops every table and rebuilds the schema from scratch. This is
// destructive and only reachable through the key-gated admin endpoint.
func (db *DB) Recreate(ctx context.Context) error {
	logger := db.Logger.With("query", "recreate")

	for _, table := range []string{"sessions", "clients", "users"} {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("recreate schema: %w", err)
		}
	}

	logger.Info("dropped all tables")

	return db.EnsureSchema(ctx)
}
