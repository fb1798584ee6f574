package interfaces

import (
	"context"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

type AccountStore interface {
	// Create fails with models.ErrDuplicateKey when the ID or referral code is taken.
	Create(ctx context.Context, account models.Account) error
	Get(ctx context.Context, id string) (models.Account, error)
	// FindByReferralCode reports false, with no error, when no account uses code.
	FindByReferralCode(ctx context.Context, code string) (models.Account, bool, error)
	// Update rewrites balance, daily profit and team profit of an existing account.
	Update(ctx context.Context, account models.Account) error
	List(ctx context.Context) ([]models.Account, error)
	ListByInviter(ctx context.Context, inviterIDs ...string) ([]models.Account, error)
	Reset(ctx context.Context) error
}
