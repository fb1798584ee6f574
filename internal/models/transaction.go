package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the business reason behind a ledger transaction
type Kind string

const (
	KindSignup             Kind = "signup"
	KindDeposit            Kind = "deposit"
	KindWithdraw           Kind = "withdraw"
	KindProfit             Kind = "profit"
	KindReferralCommission Kind = "referral_commission"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSignup, KindDeposit, KindWithdraw, KindProfit, KindReferralCommission:
		return true
	}
	return false
}

// Transaction is a single immutable ledger record for an account ("bill")
type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Kind      Kind            `json:"kind"`
	Amount    decimal.Decimal `json:"amount"` // negative for withdrawals
	CreatedAt time.Time       `json:"created_at"`
	Metadata  Metadata        `json:"metadata"`
}

// Metadata carries kind-specific details of a transaction.
type Metadata struct {
	FromAccountID string `json:"from_account_id,omitempty"` // referral_commission: account whose profit paid it
	Level         int    `json:"level,omitempty"`           // referral_commission: 1 = immediate inviter
	RunID         string `json:"run_id,omitempty"`
	Note          string `json:"note,omitempty"`
}

// Value stores metadata as JSON text. A string rather than []byte keeps
// lib/pq from sending it as bytea into a jsonb column.
func (m Metadata) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("metadata: unsupported scan type %T", src)
	}
	if len(data) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(data, m)
}
