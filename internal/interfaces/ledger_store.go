package interfaces

import (
	"context"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

// LedgerStore persists transactions. It has no update or delete for a single entry.
type LedgerStore interface {
	SaveTransaction(ctx context.Context, tx models.Transaction) error
	// GetTransactionsByAccount returns the account's transactions in insertion order.
	GetTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error)
	GetTransactions(ctx context.Context) ([]models.Transaction, error)
	Reset(ctx context.Context) error
}
