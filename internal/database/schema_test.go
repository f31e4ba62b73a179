package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableColumns(t *testing.T, db *DB, table string) []string {
	t.Helper()

	var names []string
	require.NoError(t, db.Select(&names, `SELECT name FROM pragma_table_info(?)`, table))
	return names
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := newTestDB(t) // first EnsureSchema ran inside New
	ctx := context.Background()

	require.NoError(t, db.EnsureSchema(ctx))
	require.NoError(t, db.EnsureSchema(ctx))

	columns := tableColumns(t, db, "clients")
	assert.ElementsMatch(t, []string{
		"id", "client_id", "project_name", "client_contact", "technical_task",
		"status", "price", "deadline_days", "notes", "date_created", "days_passed",
	}, columns, "repeated runs must not duplicate columns")

	assert.Contains(t, tableColumns(t, db, "users"), "full_name")
}

func TestEnsureSchema_AddsMissingColumns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Rebuild the clients table the way a legacy store looked, before the
	// additive columns existed.
	_, err := db.Exec(`DROP TABLE clients`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_name TEXT NOT NULL,
		client_contact TEXT NOT NULL,
		technical_task TEXT,
		status TEXT DEFAULT 'New',
		price REAL,
		notes TEXT,
		date_created DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO clients (project_name, client_contact) VALUES ('legacy', 'someone')`)
	require.NoError(t, err)

	require.NoError(t, db.EnsureSchema(ctx))

	columns := tableColumns(t, db, "clients")
	assert.Contains(t, columns, "client_id")
	assert.Contains(t, columns, "deadline_days")
	assert.Contains(t, columns, "days_passed")

	// The legacy row reads back with safe defaults.
	dao := NewClientDAO(db.Logger, db)
	clients, err := dao.List(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Nil(t, clients[0].ClientID)
	assert.Nil(t, clients[0].DeadlineDays)
}

func TestMigrate_ReportsSkippedSteps(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	report, err := db.Migrate(ctx)
	require.NoError(t, err)
	require.Len(t, report, 4)

	for _, step := range report {
		assert.False(t, step.Applied, "schema is current, step must be skipped: %s", step.Statement)
		assert.Equal(t, "column already exists", step.Note)
	}
}

func TestRecreate_DropsAllData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO clients (project_name, client_contact) VALUES ('p', 'c')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (username, password) VALUES ('alice', 'x')`)
	require.NoError(t, err)

	require.NoError(t, db.Recreate(ctx))

	assert.Equal(t, 0, countClients(t, db))

	var users int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&users))
	assert.Equal(t, 0, users)
}
