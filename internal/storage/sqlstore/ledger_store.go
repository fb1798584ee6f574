package sqlstore

import (
	"context"
	"database/sql"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

type LedgerStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewLedgerStore(db *sql.DB, dialect Dialect) *LedgerStore {
	return &LedgerStore{
		db:      db,
		dialect: dialect,
	}
}

func (s *LedgerStore) SaveTransaction(ctx context.Context, tx models.Transaction) error {
	const query = `INSERT INTO ledger_transactions (id, account_id, kind, amount, created_at, metadata)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(query),
		tx.ID, tx.AccountID, string(tx.Kind), tx.Amount, toNanos(tx.CreatedAt), tx.Metadata)
	return err
}

func (s *LedgerStore) GetTransactions(ctx context.Context) ([]models.Transaction, error) {
	const query = `SELECT id, account_id, kind, amount, created_at, metadata FROM ledger_transactions ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *LedgerStore) GetTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	const query = `SELECT id, account_id, kind, amount, created_at, metadata FROM ledger_transactions
	WHERE account_id = ? ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *LedgerStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ledger_transactions`)
	return err
}

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var transactions []models.Transaction
	for rows.Next() {
		var (
			tx        models.Transaction
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&tx.ID, &tx.AccountID, &kind, &tx.Amount, &createdAt, &tx.Metadata); err != nil {
			return nil, err
		}
		tx.Kind = models.Kind(kind)
		tx.CreatedAt = fromNanos(createdAt)
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

var _ interfaces.LedgerStore = (*LedgerStore)(nil)
