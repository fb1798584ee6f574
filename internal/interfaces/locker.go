package interfaces

import "context"

// Locker grants exclusive access to a set of accounts. Implementations must
// acquire in a fixed order so overlapping lock sets cannot deadlock.
type Locker interface {
	Lock(ctx context.Context, accountIDs ...string) (unlock func(), err error)
}
