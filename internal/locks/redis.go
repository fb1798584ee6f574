package locks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
)

// Deletes the key only while it still carries our token, so an expired
// lock that someone else re-acquired is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

const defaultRetryInterval = 25 * time.Millisecond

// Redis locks accounts across processes sharing one Redis. Each key expires
// after ttl so a crashed holder cannot block an account forever.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = "ledger:lock"
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{
		client: client,
		prefix: trimmedPrefix,
		ttl:    ttl,
		retry:  defaultRetryInterval,
	}
}

func (r *Redis) key(accountID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, accountID)
}

func (r *Redis) Lock(ctx context.Context, accountIDs ...string) (func(), error) {
	token := uuid.New().String()
	keys := normalize(accountIDs)
	held := make([]string, 0, len(keys))

	release := func() {
		// Release must run even when the caller's ctx is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = releaseScript.Run(releaseCtx, r.client, []string{held[i]}, token).Err()
		}
	}

	for _, id := range keys {
		key := r.key(id)
		if err := r.acquire(ctx, key, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (r *Redis) acquire(ctx context.Context, key, token string) error {
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

var _ interfaces.Locker = (*Redis)(nil)
