// Package referral resolves inviter chains and team generations. It keeps no
// state of its own; every answer is derived from the account store.
package referral

import (
	"context"
	"errors"
	"fmt"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

// MaxLevels is how far up the inviter chain commissions reach.
const MaxLevels = 3

type Graph struct {
	accounts interfaces.AccountStore
}

func NewGraph(accounts interfaces.AccountStore) *Graph {
	return &Graph{accounts: accounts}
}

// AncestorsOf walks inviter links upward from accountID, immediate inviter
// first. It makes at most maxLevels hops, so a corrupted cyclic chain still
// terminates; an inviter that no longer resolves ends the walk.
func (g *Graph) AncestorsOf(ctx context.Context, accountID string, maxLevels int) ([]models.Account, error) {
	current, err := g.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var ancestors []models.Account
	for level := 0; level < maxLevels; level++ {
		if !current.HasInviter() {
			break
		}
		inviter, err := g.accounts.Get(ctx, current.InviterID)
		if errors.Is(err, models.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		ancestors = append(ancestors, inviter)
		current = inviter
	}
	return ancestors, nil
}

// Team returns the three generations below accountID.
func (g *Graph) Team(ctx context.Context, accountID string) (models.Team, error) {
	if _, err := g.accounts.Get(ctx, accountID); err != nil {
		return models.Team{}, err
	}

	gen1, err := g.accounts.ListByInviter(ctx, accountID)
	if err != nil {
		return models.Team{}, err
	}
	gen2, err := g.accounts.ListByInviter(ctx, ids(gen1)...)
	if err != nil {
		return models.Team{}, err
	}
	gen3, err := g.accounts.ListByInviter(ctx, ids(gen2)...)
	if err != nil {
		return models.Team{}, err
	}

	return models.Team{
		Gen1: nonNil(gen1),
		Gen2: nonNil(gen2),
		Gen3: nonNil(gen3),
	}, nil
}

// ValidateInviter checks that inviterID exists and that linking accountID
// under it cannot make accountID its own ancestor.
func (g *Graph) ValidateInviter(ctx context.Context, accountID, inviterID string) error {
	if inviterID == accountID {
		return fmt.Errorf("account %q inviting itself: %w", accountID, models.ErrReferralCycle)
	}

	all, err := g.accounts.List(ctx)
	if err != nil {
		return err
	}

	current, err := g.accounts.Get(ctx, inviterID)
	if err != nil {
		return err
	}
	// The walk is bounded by the number of accounts so a pre-existing
	// cycle elsewhere in the graph cannot trap it.
	for hops := 0; hops <= len(all) && current.HasInviter(); hops++ {
		if current.InviterID == accountID {
			return fmt.Errorf("account %q under %q: %w", accountID, inviterID, models.ErrReferralCycle)
		}
		next, err := g.accounts.Get(ctx, current.InviterID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		current = next
	}
	return nil
}

func ids(accounts []models.Account) []string {
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.ID
	}
	return out
}

func nonNil(accounts []models.Account) []models.Account {
	if accounts == nil {
		return []models.Account{}
	}
	return accounts
}
