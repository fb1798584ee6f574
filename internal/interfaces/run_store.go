package interfaces

import (
	"context"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

type RunStore interface {
	SaveRun(ctx context.Context, run models.ProfitRun) error
	GetRunsByAccount(ctx context.Context, accountID string) ([]models.ProfitRun, error)
	Reset(ctx context.Context) error
}
