package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const TopicProfitDistributed = "ledger.profit.distributed"

// Commission is one paid level of a cascade.
type Commission struct {
	AccountID string          `json:"account_id"`
	Level     int             `json:"level"`
	Amount    decimal.Decimal `json:"amount"`
}

type ProfitDistributed struct {
	RunID        string          `json:"run_id"`
	AccountID    string          `json:"account_id"`
	ProfitAmount decimal.Decimal `json:"profit_amount"`
	Commissions  []Commission    `json:"commissions"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
