package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const TopicTransactionRecorded = "ledger.transaction.recorded"

type TransactionRecorded struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
