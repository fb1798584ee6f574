package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProfitRun records one execution of the profit action
type ProfitRun struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	ProfitAmount decimal.Decimal `json:"profit_amount"`
	CreatedAt    time.Time       `json:"created_at"`
}
