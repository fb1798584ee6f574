package profit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/ledger"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/locks"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models/events"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/referral"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/storage/memory"
)

type fixture struct {
	accounts *memory.MemoryAccountStore
	ledger   *ledger.Ledger
	runs     *memory.MemoryRunStore
	engine   *Engine
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.ProfitDistributed
}

func (p *capturePublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(events.ProfitDistributed); ok && topic == events.TopicProfitDistributed {
		p.events = append(p.events, e)
	}
	return nil
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	accounts := memory.NewMemoryAccountStore()
	l := ledger.NewLedger(memory.NewMemoryLedgerStore())
	runs := memory.NewMemoryRunStore()
	engine := NewEngine(accounts, l, runs, referral.NewGraph(accounts), locks.NewLocal(), opts...)
	return &fixture{accounts: accounts, ledger: l, runs: runs, engine: engine}
}

// link creates accounts so that each one invites the next: ids[0] <- ids[1] <- ...
func (f *fixture) link(t *testing.T, ids ...string) {
	t.Helper()
	inviter := ""
	for _, id := range ids {
		err := f.accounts.Create(context.Background(), models.Account{
			ID:           id,
			Balance:      decimal.Zero,
			DailyProfit:  decimal.Zero,
			TeamProfit:   decimal.Zero,
			ReferralCode: "code-" + id,
			InviterID:    inviter,
		})
		if err != nil {
			t.Fatal(err)
		}
		inviter = id
	}
}

func (f *fixture) account(t *testing.T, id string) models.Account {
	t.Helper()
	a, err := f.accounts.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func fixed(amount string) Config {
	d := decimal.RequireFromString(amount)
	return NewConfig(d, d)
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRunProfitAction_Cascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.link(t, "a", "b", "c", "d")

	run, err := f.engine.RunProfitAction(ctx, "d", fixed("100"))
	if err != nil {
		t.Fatalf("RunProfitAction() error: %v", err)
	}
	if !run.ProfitAmount.Equal(money("100")) {
		t.Fatalf("profit = %s, want 100", run.ProfitAmount)
	}

	tests := []struct {
		id                   string
		balance, daily, team string
	}{
		{"d", "100", "100", "0"},
		{"c", "20", "0", "20"},
		{"b", "5", "0", "5"},
		{"a", "2", "0", "2"},
	}
	for _, tt := range tests {
		a := f.account(t, tt.id)
		if !a.Balance.Equal(money(tt.balance)) || !a.DailyProfit.Equal(money(tt.daily)) || !a.TeamProfit.Equal(money(tt.team)) {
			t.Errorf("%s: balance=%s daily=%s team=%s, want %s/%s/%s",
				tt.id, a.Balance, a.DailyProfit, a.TeamProfit, tt.balance, tt.daily, tt.team)
		}
	}

	txs, _ := f.ledger.ListForAccount(ctx, "b")
	if len(txs) != 1 {
		t.Fatalf("b has %d transactions, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Kind != models.KindReferralCommission || tx.Metadata.FromAccountID != "d" || tx.Metadata.Level != 2 {
		t.Errorf("commission = %+v", tx)
	}
	if tx.Metadata.Note != "referral reward level 2" {
		t.Errorf("note = %q", tx.Metadata.Note)
	}

	profitTxs, _ := f.ledger.ListForAccount(ctx, "d")
	if len(profitTxs) != 1 || profitTxs[0].Kind != models.KindProfit || profitTxs[0].Metadata.RunID != run.ID {
		t.Errorf("profit entry = %+v", profitTxs)
	}
}

func TestRunProfitAction_OnlyThreeLevels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.link(t, "top", "a", "b", "c", "d")

	if _, err := f.engine.RunProfitAction(ctx, "d", fixed("50")); err != nil {
		t.Fatal(err)
	}
	if top := f.account(t, "top"); !top.Balance.IsZero() {
		t.Errorf("fourth-level ancestor credited %s", top.Balance)
	}
	if a := f.account(t, "a"); !a.Balance.Equal(money("1")) {
		t.Errorf("level 3 balance = %s, want 1.00", a.Balance)
	}
}

func TestRunProfitAction_NoInviter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.link(t, "solo")

	if _, err := f.engine.RunProfitAction(ctx, "solo", fixed("42.42")); err != nil {
		t.Fatal(err)
	}
	entries, _ := f.ledger.Entries(ctx)
	if len(entries) != 1 || entries[0].Kind != models.KindProfit {
		t.Errorf("entries = %+v, want a single profit entry", entries)
	}
}

func TestRunProfitAction_SkipsZeroShares(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.link(t, "a", "b", "c", "d")

	if _, err := f.engine.RunProfitAction(ctx, "d", fixed("0.05")); err != nil {
		t.Fatal(err)
	}
	// 0.05 pays 0.01 at level 1; 0.0025 and 0.001 round to zero.
	if c := f.account(t, "c"); !c.Balance.Equal(money("0.01")) {
		t.Errorf("level 1 balance = %s, want 0.01", c.Balance)
	}
	for _, id := range []string{"b", "a"} {
		txs, _ := f.ledger.ListForAccount(ctx, id)
		if len(txs) != 0 {
			t.Errorf("%s received %d zero commissions", id, len(txs))
		}
	}
}

func TestRunProfitAction_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.link(t, "a")

	if _, err := f.engine.RunProfitAction(ctx, "ghost", DefaultConfig()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing account error = %v, want ErrNotFound", err)
	}
	if _, err := f.engine.RunProfitAction(ctx, "a", NewConfig(money("10"), money("1"))); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("inverted range error = %v, want ErrInvalidAmount", err)
	}
	entries, _ := f.ledger.Entries(ctx)
	if len(entries) != 0 {
		t.Errorf("failed runs left %d entries", len(entries))
	}
}

func TestSample_StaysInRange(t *testing.T) {
	f := newFixture(t, WithRandom(rand.New(rand.NewSource(1)).Float64))
	lo, hi := money("1"), money("100")
	for i := 0; i < 1000; i++ {
		got := f.engine.Sample(lo, hi)
		if got.LessThan(lo) || got.GreaterThan(hi) {
			t.Fatalf("Sample() = %s outside [1, 100]", got)
		}
		if !got.Equal(got.Round(2)) {
			t.Fatalf("Sample() = %s has more than two decimals", got)
		}
	}
}

func TestConfigBounds(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		lo, hi  string
		wantErr bool
	}{
		{"zero value uses defaults", Config{}, "1", "100", false},
		{"explicit", NewConfig(money("5"), money("6")), "5", "6", false},
		{"only min", Config{MinProfit: decimal.NewNullDecimal(money("50"))}, "50", "100", false},
		{"equal bounds", fixed("3"), "3", "3", false},
		{"negative min", NewConfig(money("-1"), money("6")), "", "", true},
		{"min above max", NewConfig(money("7"), money("6")), "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, err := tt.cfg.Bounds()
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidAmount) {
					t.Errorf("error = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !lo.Equal(money(tt.lo)) || !hi.Equal(money(tt.hi)) {
				t.Errorf("Bounds() = %s, %s, want %s, %s", lo, hi, tt.lo, tt.hi)
			}
		})
	}
}

func TestDistributeCommissions_Rounding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.link(t, "a", "b", "c", "d")

	paid, err := f.engine.DistributeCommissions(ctx, "d", money("33.33"))
	if err != nil {
		t.Fatal(err)
	}
	// 6.666 -> 6.67, 1.6665 -> 1.67, 0.6666 -> 0.67
	want := []string{"6.67", "1.67", "0.67"}
	if len(paid) != len(want) {
		t.Fatalf("paid %d commissions, want %d", len(paid), len(want))
	}
	for i, tx := range paid {
		if !tx.Amount.Equal(money(want[i])) {
			t.Errorf("level %d = %s, want %s", i+1, tx.Amount, want[i])
		}
	}
}

func TestRunProfitAction_ReconcilesUnderLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.link(t, "a", "b", "c", "d", "e")
	f.link(t, "x", "y")
	ids := []string{"a", "b", "c", "d", "e", "x", "y"}

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.engine.RunProfitAction(ctx, ids[i%len(ids)], DefaultConfig()); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("RunProfitAction() error: %v", err)
	}

	for _, id := range ids {
		if err := f.ledger.Reconcile(ctx, f.account(t, id)); err != nil {
			t.Errorf("Reconcile(%s): %v", id, err)
		}
	}
}

func TestRunsForAccount(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	now := base
	f := newFixture(t, WithClock(func() time.Time { return now }))
	f.link(t, "a", "b")

	var ids []string
	for i := 0; i < 3; i++ {
		now = base.Add(time.Duration(i) * time.Hour)
		run, err := f.engine.RunProfitAction(ctx, "b", fixed(fmt.Sprintf("%d", i+1)))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := f.engine.RunsForAccount(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || runs[0].ID != ids[2] || runs[2].ID != ids[0] {
		t.Errorf("RunsForAccount order wrong: %+v", runs)
	}

	empty, err := f.engine.RunsForAccount(ctx, "a")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("RunsForAccount(a) = %v, %v, want empty slice", empty, err)
	}
	if _, err := f.engine.RunsForAccount(ctx, "ghost"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("RunsForAccount(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestRunProfitAction_PublishesDistribution(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	f := newFixture(t, WithPublisher(pub))
	f.link(t, "a", "b")

	run, err := f.engine.RunProfitAction(ctx, "b", fixed("10"))
	if err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	event := pub.events[0]
	if event.RunID != run.ID || len(event.Commissions) != 1 {
		t.Fatalf("event = %+v", event)
	}
	if c := event.Commissions[0]; c.AccountID != "a" || c.Level != 1 || !c.Amount.Equal(money("2")) {
		t.Errorf("commission = %+v", c)
	}
}
