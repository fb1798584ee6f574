package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/storage/sqlstore"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var Dialect = sqlstore.Dialect{
	Name:     "postgres",
	Numbered: true,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			seq           BIGSERIAL PRIMARY KEY,
			id            TEXT NOT NULL UNIQUE,
			balance       NUMERIC(20,2) NOT NULL DEFAULT 0,
			daily_profit  NUMERIC(20,2) NOT NULL DEFAULT 0,
			team_profit   NUMERIC(20,2) NOT NULL DEFAULT 0,
			referral_code TEXT NOT NULL UNIQUE,
			inviter_id    TEXT REFERENCES accounts(id),
			created_at    BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_inviter ON accounts(inviter_id)`,
		`CREATE TABLE IF NOT EXISTS ledger_transactions (
			seq        BIGSERIAL PRIMARY KEY,
			id         TEXT NOT NULL UNIQUE,
			account_id TEXT NOT NULL,
			kind       TEXT NOT NULL,
			amount     NUMERIC(20,2) NOT NULL,
			created_at BIGINT NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_transactions_account ON ledger_transactions(account_id)`,
		`CREATE TABLE IF NOT EXISTS profit_runs (
			seq           BIGSERIAL PRIMARY KEY,
			id            TEXT NOT NULL UNIQUE,
			account_id    TEXT NOT NULL,
			profit_amount NUMERIC(20,2) NOT NULL,
			created_at    BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profit_runs_account ON profit_runs(account_id)`,
	},
	IsUniqueViolation: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
	},
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}
