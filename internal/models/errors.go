package models

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrReferralCycle is returned when an inviter link would make an account its own ancestor.
	ErrReferralCycle = errors.New("referral cycle")
	ErrInvalidKind   = errors.New("invalid transaction kind")

	// ErrReconciliation means an account balance disagrees with the sum of its ledger.
	ErrReconciliation = errors.New("balance does not match ledger")
)
