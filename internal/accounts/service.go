package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/ledger"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/metrics"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/referral"
)

const (
	referralCodePrefix   = "INV-"
	referralCodeLength   = 6
	referralCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	maxCodeAttempts      = 8
)

// DemoBalance is credited to the demo account created by SeedDemo.
var DemoBalance = decimal.NewFromInt(1000)

// Service implements signup and direct balance mutations.
type Service struct {
	accounts interfaces.AccountStore
	ledger   *ledger.Ledger
	runs     interfaces.RunStore
	graph    *referral.Graph
	locker   interfaces.Locker
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	newCode  func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator replaces the random referral code generator.
func WithCodeGenerator(gen func() string) Option {
	return func(s *Service) { s.newCode = gen }
}

func NewService(accounts interfaces.AccountStore, l *ledger.Ledger, runs interfaces.RunStore, graph *referral.Graph, locker interfaces.Locker, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		ledger:   l,
		runs:     runs,
		graph:    graph,
		locker:   locker,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
		newCode:  GenerateReferralCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateReferralCode returns a code such as INV-7QX2KD.
func GenerateReferralCode() string {
	b := make([]byte, referralCodeLength)
	for i := range b {
		b[i] = referralCodeAlphabet[rand.Intn(len(referralCodeAlphabet))]
	}
	return referralCodePrefix + string(b)
}

// Signup creates an account, optionally under the owner of inviterCode.
// An unknown code is ignored and the account starts without an inviter.
func (s *Service) Signup(ctx context.Context, inviterCode string) (account models.Account, err error) {
	defer func() { metrics.ObserveOperation("signup", err) }()

	account = models.Account{
		ID:          s.newID(),
		Balance:     decimal.Zero,
		DailyProfit: decimal.Zero,
		TeamProfit:  decimal.Zero,
		CreatedAt:   s.now(),
	}

	if inviterCode != "" {
		inviter, found, err := s.accounts.FindByReferralCode(ctx, inviterCode)
		if err != nil {
			return models.Account{}, err
		}
		if found {
			if err := s.graph.ValidateInviter(ctx, account.ID, inviter.ID); err != nil {
				return models.Account{}, err
			}
			account.InviterID = inviter.ID
		}
	}

	for attempt := 1; ; attempt++ {
		account.ReferralCode = s.newCode()
		err = s.accounts.Create(ctx, account)
		if err == nil {
			break
		}
		if !errors.Is(err, models.ErrDuplicateKey) || attempt >= maxCodeAttempts {
			return models.Account{}, fmt.Errorf("create account: %w", err)
		}
		s.logger.Debug("referral code collision, retrying", "attempt", attempt)
	}

	if _, err = s.ledger.Append(ctx, account.ID, models.KindSignup, decimal.Zero, models.Metadata{Note: "new signup"}); err != nil {
		return models.Account{}, err
	}

	s.logger.Info("account created", "account_id", account.ID, "inviter_id", account.InviterID)
	return account, nil
}

func (s *Service) Get(ctx context.Context, accountID string) (models.Account, error) {
	return s.accounts.Get(ctx, accountID)
}

// Deposit credits a positive amount to the account.
func (s *Service) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (account models.Account, err error) {
	defer func() { metrics.ObserveOperation("deposit", err) }()

	amount, err = validAmount(amount)
	if err != nil {
		return models.Account{}, err
	}

	unlock, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		return models.Account{}, fmt.Errorf("lock account: %w", err)
	}
	defer unlock()

	account, err = s.accounts.Get(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}

	account.Balance = models.AddMoney(account.Balance, amount)
	if err = s.accounts.Update(ctx, account); err != nil {
		return models.Account{}, fmt.Errorf("update account: %w", err)
	}
	if _, err = s.ledger.Append(ctx, accountID, models.KindDeposit, amount, models.Metadata{Note: "deposit"}); err != nil {
		return models.Account{}, err
	}

	s.logger.Info("deposit", "account_id", accountID, "amount", amount.StringFixed(models.MoneyPlaces))
	return account, nil
}

// Withdraw debits a positive amount that the balance covers.
func (s *Service) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (account models.Account, err error) {
	defer func() { metrics.ObserveOperation("withdraw", err) }()

	amount, err = validAmount(amount)
	if err != nil {
		return models.Account{}, err
	}

	unlock, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		return models.Account{}, fmt.Errorf("lock account: %w", err)
	}
	defer unlock()

	account, err = s.accounts.Get(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}
	if amount.GreaterThan(account.Balance) {
		return models.Account{}, fmt.Errorf("withdraw %s from balance %s: %w",
			amount.StringFixed(models.MoneyPlaces), account.Balance.StringFixed(models.MoneyPlaces), models.ErrInsufficientFunds)
	}

	account.Balance = models.AddMoney(account.Balance, amount.Neg())
	if err = s.accounts.Update(ctx, account); err != nil {
		return models.Account{}, fmt.Errorf("update account: %w", err)
	}
	if _, err = s.ledger.Append(ctx, accountID, models.KindWithdraw, amount.Neg(), models.Metadata{Note: "withdraw"}); err != nil {
		return models.Account{}, err
	}

	s.logger.Info("withdraw", "account_id", accountID, "amount", amount.StringFixed(models.MoneyPlaces))
	return account, nil
}

// Team returns the three generations invited below the account.
func (s *Service) Team(ctx context.Context, accountID string) (models.Team, error) {
	return s.graph.Team(ctx, accountID)
}

// Transactions returns the account's ledger, most recent first.
func (s *Service) Transactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	transactions, err := s.ledger.ListForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return transactions, nil
}

// Reconcile verifies the account balance against its ledger.
func (s *Service) Reconcile(ctx context.Context, accountID string) error {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	return s.ledger.Reconcile(ctx, account)
}

// Reset wipes every account, transaction and profit run.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.runs.Reset(ctx); err != nil {
		return fmt.Errorf("reset runs: %w", err)
	}
	if err := s.ledger.Reset(ctx); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	if err := s.accounts.Reset(ctx); err != nil {
		return fmt.Errorf("reset accounts: %w", err)
	}
	s.logger.Warn("all ledger data reset")
	return nil
}

// SeedDemo creates a demo account holding DemoBalance when no account exists.
// It reports whether an account was created.
func (s *Service) SeedDemo(ctx context.Context) (models.Account, bool, error) {
	existing, err := s.accounts.List(ctx)
	if err != nil {
		return models.Account{}, false, err
	}
	if len(existing) > 0 {
		return models.Account{}, false, nil
	}

	account, err := s.Signup(ctx, "")
	if err != nil {
		return models.Account{}, false, err
	}
	account, err = s.Deposit(ctx, account.ID, DemoBalance)
	if err != nil {
		return models.Account{}, false, err
	}
	return account, true, nil
}

// validAmount rounds amount to two decimals and requires it to stay positive.
func validAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := models.RoundMoney(amount)
	if !rounded.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: %w", amount.String(), models.ErrInvalidAmount)
	}
	return rounded, nil
}
