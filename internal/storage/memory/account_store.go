package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

// MemoryAccountStore keeps accounts in maps guarded by a single mutex.
// order preserves creation order for listings; invitees indexes accounts
// by inviter so team lookups don't rescan every account.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	byCode   map[string]string // referral code -> account ID
	invitees map[string][]string
	order    []string
	position map[string]int // account ID -> index in order
}

func NewMemoryAccountStore() *MemoryAccountStore {
	s := &MemoryAccountStore{}
	s.init()
	return s
}

func (m *MemoryAccountStore) init() {
	m.accounts = make(map[string]models.Account)
	m.byCode = make(map[string]string)
	m.invitees = make(map[string][]string)
	m.order = nil
	m.position = make(map[string]int)
}

func (m *MemoryAccountStore) Create(ctx context.Context, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[account.ID]; exists {
		return fmt.Errorf("account id %q: %w", account.ID, models.ErrDuplicateKey)
	}
	if _, exists := m.byCode[account.ReferralCode]; exists {
		return fmt.Errorf("referral code %q: %w", account.ReferralCode, models.ErrDuplicateKey)
	}

	m.accounts[account.ID] = account
	m.byCode[account.ReferralCode] = account.ID
	if account.InviterID != "" {
		m.invitees[account.InviterID] = append(m.invitees[account.InviterID], account.ID)
	}
	m.position[account.ID] = len(m.order)
	m.order = append(m.order, account.ID)
	return nil
}

func (m *MemoryAccountStore) Get(ctx context.Context, id string) (models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return models.Account{}, fmt.Errorf("account %q: %w", id, models.ErrNotFound)
	}
	return account, nil
}

func (m *MemoryAccountStore) FindByReferralCode(ctx context.Context, code string) (models.Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byCode[code]
	if !ok {
		return models.Account{}, false, nil
	}
	return m.accounts[id], true, nil
}

// Update only touches the mutable counters; referral code, inviter and
// creation time stay as they were at Create.
func (m *MemoryAccountStore) Update(ctx context.Context, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.accounts[account.ID]
	if !ok {
		return fmt.Errorf("account %q: %w", account.ID, models.ErrNotFound)
	}
	stored.Balance = account.Balance
	stored.DailyProfit = account.DailyProfit
	stored.TeamProfit = account.TeamProfit
	m.accounts[account.ID] = stored
	return nil
}

func (m *MemoryAccountStore) List(ctx context.Context) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Account, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.accounts[id])
	}
	return result, nil
}

// ListByInviter returns invitees of any of inviterIDs in creation order.
func (m *MemoryAccountStore) ListByInviter(ctx context.Context, inviterIDs ...string) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	seen := make(map[string]struct{}, len(inviterIDs))
	for _, inviterID := range inviterIDs {
		if _, dup := seen[inviterID]; dup {
			continue
		}
		seen[inviterID] = struct{}{}
		ids = append(ids, m.invitees[inviterID]...)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.position[ids[i]] < m.position[ids[j]]
	})

	result := make([]models.Account, 0, len(ids))
	for _, id := range ids {
		result = append(result, m.accounts[id])
	}
	return result, nil
}

func (m *MemoryAccountStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	return nil
}

var _ interfaces.AccountStore = (*MemoryAccountStore)(nil)
