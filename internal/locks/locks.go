// Package locks provides exclusive access to groups of accounts. Every
// implementation acquires keys in ascending order, so two operations whose
// account sets overlap can never deadlock each other.
package locks

import (
	"context"
	"sort"
	"sync"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
)

// Local locks accounts within one process.
type Local struct {
	mapMu sync.Mutex               // protects slots
	slots map[string]chan struct{} // one single-slot semaphore per account
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(accountID string) chan struct{} {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.slots[accountID]; !exists {
		l.slots[accountID] = make(chan struct{}, 1)
	}
	return l.slots[accountID]
}

// Lock blocks until every account is held or ctx is done. On failure nothing stays locked.
func (l *Local) Lock(ctx context.Context, accountIDs ...string) (func(), error) {
	keys := normalize(accountIDs)
	held := make([]chan struct{}, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, key := range keys {
		slot := l.slot(key)
		select {
		case slot <- struct{}{}:
			held = append(held, slot)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// normalize sorts and deduplicates ids, dropping empty ones.
func normalize(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var _ interfaces.Locker = (*Local)(nil)
