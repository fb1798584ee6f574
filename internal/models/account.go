package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user's financial and referral identity
type Account struct {
	ID           string          `json:"id"`            // immutable, assigned at signup
	Balance      decimal.Decimal `json:"balance"`       // never negative after a committed operation
	DailyProfit  decimal.Decimal `json:"daily_profit"`  // cumulative profit from profit runs
	TeamProfit   decimal.Decimal `json:"team_profit"`   // cumulative referral commissions
	ReferralCode string          `json:"referral_code"` // unique, handed out to invitees
	InviterID    string          `json:"inviter_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// HasInviter reports whether the account joined through someone's referral code.
func (a Account) HasInviter() bool {
	return a.InviterID != ""
}

// Team groups the accounts below an inviter by generation.
type Team struct {
	Gen1 []Account `json:"gen1"`
	Gen2 []Account `json:"gen2"`
	Gen3 []Account `json:"gen3"`
}
