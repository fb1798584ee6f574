package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

type AccountStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewAccountStore(db *sql.DB, dialect Dialect) *AccountStore {
	return &AccountStore{
		db:      db,
		dialect: dialect,
	}
}

const accountColumns = `id, balance, daily_profit, team_profit, referral_code, inviter_id, created_at`

func (s *AccountStore) Create(ctx context.Context, account models.Account) error {
	const query = `INSERT INTO accounts (id, balance, daily_profit, team_profit, referral_code, inviter_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	inviter := sql.NullString{String: account.InviterID, Valid: account.InviterID != ""}
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(query),
		account.ID,
		account.Balance,
		account.DailyProfit,
		account.TeamProfit,
		account.ReferralCode,
		inviter,
		toNanos(account.CreatedAt),
	)
	if err != nil {
		if s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("account %q: %w", account.ID, models.ErrDuplicateKey)
		}
		return err
	}
	return nil
}

func (s *AccountStore) Get(ctx context.Context, id string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	account, err := scanAccount(s.db.QueryRowContext(ctx, s.dialect.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("account %q: %w", id, models.ErrNotFound)
	}
	return account, err
}

func (s *AccountStore) FindByReferralCode(ctx context.Context, code string) (models.Account, bool, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE referral_code = ?`

	account, err := scanAccount(s.db.QueryRowContext(ctx, s.dialect.rebind(query), code))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, false, nil
	}
	if err != nil {
		return models.Account{}, false, err
	}
	return account, true, nil
}

func (s *AccountStore) Update(ctx context.Context, account models.Account) error {
	const query = `UPDATE accounts SET balance = ?, daily_profit = ?, team_profit = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query),
		account.Balance, account.DailyProfit, account.TeamProfit, account.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", account.ID, models.ErrNotFound)
	}
	return nil
}

func (s *AccountStore) List(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (s *AccountStore) ListByInviter(ctx context.Context, inviterIDs ...string) ([]models.Account, error) {
	if len(inviterIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(inviterIDs)), ",")
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE inviter_id IN (` + placeholders + `) ORDER BY seq`

	args := make([]any, len(inviterIDs))
	for i, id := range inviterIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (s *AccountStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (models.Account, error) {
	var (
		account   models.Account
		inviter   sql.NullString
		createdAt int64
	)
	err := row.Scan(
		&account.ID,
		&account.Balance,
		&account.DailyProfit,
		&account.TeamProfit,
		&account.ReferralCode,
		&inviter,
		&createdAt,
	)
	if err != nil {
		return models.Account{}, err
	}
	account.InviterID = inviter.String
	account.CreatedAt = fromNanos(createdAt)
	return account, nil
}

func scanAccounts(rows *sql.Rows) ([]models.Account, error) {
	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

var _ interfaces.AccountStore = (*AccountStore)(nil)
