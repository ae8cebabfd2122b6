// Package lock serializes deployments that share a deployer account.
//
// Two concurrent runs from the same account would race on the pending
// nonce. The lock only covers that window; sequential runs are never
// deduplicated.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/Bidon15/indicator-deployer/internal/pkg/ulid"
)

// ErrLocked is returned when another run holds the deployer lock.
var ErrLocked = errors.New("deployer account is locked by another run")

// DefaultTTL bounds how long a crashed holder blocks the account.
const DefaultTTL = 15 * time.Minute

const keyPrefix = "indicator-deployer:lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker guards deployer accounts with SET NX PX.
type RedisLocker struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisLocker creates a locker. A non-positive ttl uses DefaultTTL.
func NewRedisLocker(client redis.Cmdable, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Key returns the Redis key guarding account on chainID.
func Key(chainID int64, account common.Address) string {
	return fmt.Sprintf("%s%d:%s", keyPrefix, chainID, strings.ToLower(account.Hex()))
}

// Acquire takes the lock for account or returns ErrLocked.
func (l *RedisLocker) Acquire(ctx context.Context, chainID int64, account common.Address) (*Lease, error) {
	key := Key(chainID, account)
	token := ulid.New()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lease{client: l.client, key: key, token: token}, nil
}

// Lock acquires the lock for account and returns its release function.
func (l *RedisLocker) Lock(ctx context.Context, chainID int64, account common.Address) (func(context.Context) error, error) {
	lease, err := l.Acquire(ctx, chainID, account)
	if err != nil {
		return nil, err
	}
	return lease.Release, nil
}

// Lease is a held lock.
type Lease struct {
	client redis.Cmdable
	key    string
	token  string
}

// Key returns the locked key.
func (l *Lease) Key() string {
	return l.key
}

// Release drops the lock if this lease still owns it.
func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
