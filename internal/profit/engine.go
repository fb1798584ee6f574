package profit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/ledger"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/metrics"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models/events"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/referral"
)

// CommissionRates are the shares of a profit paid to each ancestor level,
// index 0 being the immediate inviter. Every level is a flat share of the
// original profit.
var CommissionRates = []decimal.Decimal{
	decimal.RequireFromString("0.20"),
	decimal.RequireFromString("0.05"),
	decimal.RequireFromString("0.02"),
}

// Engine runs profit actions and cascades commissions up the referral chain.
type Engine struct {
	accounts  interfaces.AccountStore
	ledger    *ledger.Ledger
	runs      interfaces.RunStore
	graph     *referral.Graph
	locker    interfaces.Locker
	publisher interfaces.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	random    func() float64 // uniform in [0, 1)
}

type Option func(*Engine)

func WithPublisher(p interfaces.EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRandom replaces the uniform [0, 1) source used to sample profit.
func WithRandom(random func() float64) Option {
	return func(e *Engine) { e.random = random }
}

func NewEngine(accounts interfaces.AccountStore, l *ledger.Ledger, runs interfaces.RunStore, graph *referral.Graph, locker interfaces.Locker, opts ...Option) *Engine {
	e := &Engine{
		accounts: accounts,
		ledger:   l,
		runs:     runs,
		graph:    graph,
		locker:   locker,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
		random:   rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sample draws a profit uniformly from [lo, hi], rounded to two decimals.
func (e *Engine) Sample(lo, hi decimal.Decimal) decimal.Decimal {
	r := decimal.NewFromFloat(e.random())
	return models.RoundMoney(lo.Add(hi.Sub(lo).Mul(r)))
}

// RunProfitAction credits one sampled profit to the account, records it and
// pays commissions to up to three ancestors.
func (e *Engine) RunProfitAction(ctx context.Context, accountID string, cfg Config) (models.ProfitRun, error) {
	lo, hi, err := cfg.Bounds()
	if err != nil {
		return models.ProfitRun{}, err
	}

	// Inviter links never change, so the chain can be resolved before locking.
	ancestors, err := e.graph.AncestorsOf(ctx, accountID, referral.MaxLevels)
	if err != nil {
		return models.ProfitRun{}, err
	}
	unlock, err := e.locker.Lock(ctx, append(accountIDs(ancestors), accountID)...)
	if err != nil {
		return models.ProfitRun{}, fmt.Errorf("lock accounts: %w", err)
	}
	defer unlock()

	account, err := e.accounts.Get(ctx, accountID)
	if err != nil {
		return models.ProfitRun{}, err
	}

	profit := e.Sample(lo, hi)
	run := models.ProfitRun{
		ID:           e.newID(),
		AccountID:    accountID,
		ProfitAmount: profit,
		CreatedAt:    e.now(),
	}

	account.Balance = models.AddMoney(account.Balance, profit)
	account.DailyProfit = models.AddMoney(account.DailyProfit, profit)
	if err := e.accounts.Update(ctx, account); err != nil {
		return models.ProfitRun{}, fmt.Errorf("update account: %w", err)
	}

	if _, err := e.ledger.Append(ctx, accountID, models.KindProfit, profit, models.Metadata{
		RunID: run.ID,
		Note:  "profit run",
	}); err != nil {
		return models.ProfitRun{}, err
	}

	if err := e.runs.SaveRun(ctx, run); err != nil {
		return models.ProfitRun{}, fmt.Errorf("save run: %w", err)
	}

	paid, err := e.distribute(ctx, accountID, profit)
	if err != nil {
		return models.ProfitRun{}, err
	}

	metrics.ObserveProfit(profit)
	e.logger.Info("profit run completed",
		"run_id", run.ID,
		"account_id", accountID,
		"profit", profit.StringFixed(models.MoneyPlaces),
		"commissions", len(paid),
	)
	e.publishRun(ctx, run, paid)
	return run, nil
}

// DistributeCommissions pays each ancestor of originAccountID its share of
// profitAmount and returns the commission transactions it recorded.
func (e *Engine) DistributeCommissions(ctx context.Context, originAccountID string, profitAmount decimal.Decimal) ([]models.Transaction, error) {
	ancestors, err := e.graph.AncestorsOf(ctx, originAccountID, referral.MaxLevels)
	if err != nil {
		return nil, err
	}
	unlock, err := e.locker.Lock(ctx, accountIDs(ancestors)...)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer unlock()

	return e.distribute(ctx, originAccountID, profitAmount)
}

// distribute expects the ancestors of originAccountID to be locked.
func (e *Engine) distribute(ctx context.Context, originAccountID string, profitAmount decimal.Decimal) ([]models.Transaction, error) {
	ancestors, err := e.graph.AncestorsOf(ctx, originAccountID, referral.MaxLevels)
	if err != nil {
		return nil, err
	}

	var paid []models.Transaction
	for i, ancestor := range ancestors {
		if i >= len(CommissionRates) {
			break
		}
		share := models.RoundMoney(profitAmount.Mul(CommissionRates[i]))
		if !share.IsPositive() {
			continue
		}

		// Re-read: a corrupted chain may list the same account twice.
		ancestor, err := e.accounts.Get(ctx, ancestor.ID)
		if err != nil {
			return paid, err
		}
		ancestor.Balance = models.AddMoney(ancestor.Balance, share)
		ancestor.TeamProfit = models.AddMoney(ancestor.TeamProfit, share)
		if err := e.accounts.Update(ctx, ancestor); err != nil {
			return paid, fmt.Errorf("update ancestor %q: %w", ancestor.ID, err)
		}

		level := i + 1
		tx, err := e.ledger.Append(ctx, ancestor.ID, models.KindReferralCommission, share, models.Metadata{
			FromAccountID: originAccountID,
			Level:         level,
			Note:          fmt.Sprintf("referral reward level %d", level),
		})
		if err != nil {
			return paid, err
		}
		metrics.ObserveCommission(level, share)
		paid = append(paid, tx)
	}
	return paid, nil
}

// RunsForAccount returns the account's profit runs, most recent first.
func (e *Engine) RunsForAccount(ctx context.Context, accountID string) ([]models.ProfitRun, error) {
	if _, err := e.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	runs, err := e.runs.GetRunsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if runs == nil {
		runs = []models.ProfitRun{}
	}
	return runs, nil
}

func (e *Engine) publishRun(ctx context.Context, run models.ProfitRun, paid []models.Transaction) {
	if e.publisher == nil {
		return
	}
	event := events.ProfitDistributed{
		RunID:        run.ID,
		AccountID:    run.AccountID,
		ProfitAmount: run.ProfitAmount,
		Commissions:  make([]events.Commission, 0, len(paid)),
		OccurredAt:   run.CreatedAt,
	}
	for _, tx := range paid {
		event.Commissions = append(event.Commissions, events.Commission{
			AccountID: tx.AccountID,
			Level:     tx.Metadata.Level,
			Amount:    tx.Amount,
		})
	}
	if err := e.publisher.Publish(ctx, events.TopicProfitDistributed, event); err != nil {
		e.logger.Warn("publish profit event failed", "run_id", run.ID, "err", err)
	}
}

func accountIDs(accounts []models.Account) []string {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return ids
}
