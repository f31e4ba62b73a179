package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"
)

const (
	_defaultTimeout = 3 * time.Second
	_driverName     = "sqlite"
)

type DB struct {
	*sqlx.DB
	Builder squirrel.StatementBuilderType
	Logger  *slog.Logger
}

func New(logger *slog.Logger, path string, automigrate bool) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), _defaultTimeout)
	defer cancel()

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)"

	sqlxDB, err := sqlx.ConnectContext(ctx, _driverName, dsn)
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer; one pooled connection keeps a
	// transaction's reads and writes on the same handle.
	sqlxDB.SetMaxOpenConns(1)
	sqlxDB.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{
		DB:      sqlxDB,
		Builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		Logger:  logger.With("module", "database"),
	}

	if automigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic. Panics are rethrown.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}
