package memory

import (
	"context"
	"sync"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

// MemoryRunStore keeps profit run history in insertion order.
type MemoryRunStore struct {
	mu   sync.Mutex
	runs []models.ProfitRun
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make([]models.ProfitRun, 0)}
}

func (m *MemoryRunStore) SaveRun(ctx context.Context, run models.ProfitRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, run)
	return nil
}

func (m *MemoryRunStore) GetRunsByAccount(ctx context.Context, accountID string) ([]models.ProfitRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.ProfitRun
	for _, r := range m.runs {
		if r.AccountID == accountID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MemoryRunStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = make([]models.ProfitRun, 0)
	return nil
}

var _ interfaces.RunStore = (*MemoryRunStore)(nil)
