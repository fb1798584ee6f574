package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models/events"
)

// Ledger is the append-only log of balance-affecting events.
// It holds a reference to the storage layer and an optional event publisher.
type Ledger struct {
	store     interfaces.LedgerStore // any storage implementation (memory, postgres, sqlite)
	publisher interfaces.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Ledger)

func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a Ledger over the given store.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records a new immutable transaction for accountID.
// The amount is rounded to two decimals; negative amounts are outflows.
func (l *Ledger) Append(ctx context.Context, accountID string, kind models.Kind, amount decimal.Decimal, metadata models.Metadata) (models.Transaction, error) {
	if !kind.Valid() {
		return models.Transaction{}, fmt.Errorf("%q: %w", kind, models.ErrInvalidKind)
	}

	tx := models.Transaction{
		ID:        l.newID(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    models.RoundMoney(amount),
		CreatedAt: l.now(),
		Metadata:  metadata,
	}

	if err := l.store.SaveTransaction(ctx, tx); err != nil {
		return models.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	l.publish(ctx, tx)
	return tx, nil
}

// The store is the source of truth, so a failed publish is only logged.
func (l *Ledger) publish(ctx context.Context, tx models.Transaction) {
	if l.publisher == nil {
		return
	}
	event := events.TransactionRecorded{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Kind:          string(tx.Kind),
		Amount:        tx.Amount,
		OccurredAt:    tx.CreatedAt,
	}
	if err := l.publisher.Publish(ctx, events.TopicTransactionRecorded, event); err != nil {
		l.logger.Warn("publish transaction event failed",
			"transaction_id", tx.ID,
			"account_id", tx.AccountID,
			"err", err,
		)
	}
}

// ListForAccount returns the account's transactions, most recent first.
// Entries with equal timestamps keep the order they were appended in.
func (l *Ledger) ListForAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	transactions, err := l.store.GetTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})
	return transactions, nil
}

// Balance sums every transaction amount recorded for the account.
func (l *Ledger) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	transactions, err := l.store.GetTransactionsByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, tx := range transactions {
		balance = balance.Add(tx.Amount)
	}
	return models.RoundMoney(balance), nil
}

// Reconcile checks that the account balance equals the sum of its ledger.
func (l *Ledger) Reconcile(ctx context.Context, account models.Account) error {
	sum, err := l.Balance(ctx, account.ID)
	if err != nil {
		return err
	}
	if !sum.Equal(account.Balance) {
		return fmt.Errorf("account %q balance %s, ledger %s: %w",
			account.ID, account.Balance.StringFixed(models.MoneyPlaces), sum.StringFixed(models.MoneyPlaces), models.ErrReconciliation)
	}
	return nil
}

// Entries returns every transaction in insertion order.
func (l *Ledger) Entries(ctx context.Context) ([]models.Transaction, error) {
	return l.store.GetTransactions(ctx)
}

// Reset removes every transaction. It exists only for the administrative wipe.
func (l *Ledger) Reset(ctx context.Context) error {
	return l.store.Reset(ctx)
}
