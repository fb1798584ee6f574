package sqlstore

import (
	"context"
	"database/sql"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

type RunStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewRunStore(db *sql.DB, dialect Dialect) *RunStore {
	return &RunStore{
		db:      db,
		dialect: dialect,
	}
}

func (s *RunStore) SaveRun(ctx context.Context, run models.ProfitRun) error {
	const query = `INSERT INTO profit_runs (id, account_id, profit_amount, created_at) VALUES (?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(query),
		run.ID, run.AccountID, run.ProfitAmount, toNanos(run.CreatedAt))
	return err
}

func (s *RunStore) GetRunsByAccount(ctx context.Context, accountID string) ([]models.ProfitRun, error) {
	const query = `SELECT id, account_id, profit_amount, created_at FROM profit_runs WHERE account_id = ? ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ProfitRun
	for rows.Next() {
		var (
			run       models.ProfitRun
			createdAt int64
		)
		if err := rows.Scan(&run.ID, &run.AccountID, &run.ProfitAmount, &createdAt); err != nil {
			return nil, err
		}
		run.CreatedAt = fromNanos(createdAt)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *RunStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profit_runs`)
	return err
}

var _ interfaces.RunStore = (*RunStore)(nil)
