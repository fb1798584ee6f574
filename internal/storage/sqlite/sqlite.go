package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/storage/sqlstore"
)

// Money is stored as TEXT: NUMERIC affinity would turn 20.50 into a float.
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT NOT NULL UNIQUE,
			balance       TEXT NOT NULL DEFAULT '0',
			daily_profit  TEXT NOT NULL DEFAULT '0',
			team_profit   TEXT NOT NULL DEFAULT '0',
			referral_code TEXT NOT NULL UNIQUE,
			inviter_id    TEXT REFERENCES accounts(id),
			created_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_inviter ON accounts(inviter_id)`,
		`CREATE TABLE IF NOT EXISTS ledger_transactions (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			account_id TEXT NOT NULL,
			kind       TEXT NOT NULL,
			amount     TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_transactions_account ON ledger_transactions(account_id)`,
		`CREATE TABLE IF NOT EXISTS profit_runs (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT NOT NULL UNIQUE,
			account_id    TEXT NOT NULL,
			profit_amount TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profit_runs_account ON profit_runs(account_id)`,
	},
	IsUniqueViolation: func(err error) bool {
		var sqliteErr *sqlite.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	},
}

// Open opens (creating if needed) a SQLite database file. A single
// connection keeps writes serialized and makes ":memory:" usable.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}
	return db, nil
}
