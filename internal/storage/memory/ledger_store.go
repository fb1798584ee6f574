package memory

import (
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"sync"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Transactions are kept in an append-only slice; insertion order is preserved.
type MemoryLedgerStore struct {
	mu           sync.Mutex
	transactions []models.Transaction
	byAccount    map[string][]int // account ID -> positions in transactions
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		transactions: make([]models.Transaction, 0),
		byAccount:    make(map[string][]int),
	}
}

// SaveTransaction appends a transaction. It always succeeds in memory.
func (m *MemoryLedgerStore) SaveTransaction(ctx context.Context, tx models.Transaction) error {
	m.mu.Lock()         // lock the mutex to prevent concurrent writes
	defer m.mu.Unlock() // unlock automatically when function exits

	m.byAccount[tx.AccountID] = append(m.byAccount[tx.AccountID], len(m.transactions))
	m.transactions = append(m.transactions, tx)
	return nil
}

// GetTransactions returns a copy of every stored transaction.
func (m *MemoryLedgerStore) GetTransactions(ctx context.Context) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// return a copy so external code can't modify internal state
	copied := make([]models.Transaction, len(m.transactions))
	copy(copied, m.transactions)
	return copied, nil
}

func (m *MemoryLedgerStore) GetTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	positions := m.byAccount[accountID]
	result := make([]models.Transaction, 0, len(positions))
	for _, pos := range positions {
		result = append(result, m.transactions[pos])
	}
	return result, nil
}

func (m *MemoryLedgerStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions = make([]models.Transaction, 0)
	m.byAccount = make(map[string][]int)
	return nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
