package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// releaseTimeout bounds the unlock round trip, which runs after the scan's
// context may already be cancelled.
const releaseTimeout = 5 * time.Second

// releaseScript deletes KEYS[1] only while it still holds ARGV[1], so a scan
// that outlived its TTL cannot drop the lock a newer scan took.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// LockManager implements domain.LockManager on SET NX PX. The scan service
// holds one lock per sport per pass so overlapping monitor instances do not
// spend quota on the same sport.
type LockManager struct {
	rdb *redis.Client
}

var _ domain.LockManager = (*LockManager)(nil)

// NewLockManager creates a lock manager.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{rdb: c.Underlying()}
}

func lockKey(key string) string {
	return "lock:" + key
}

// Acquire takes key for ttl and returns domain.ErrLockHeld when another
// holder owns it. The release func is safe to call more than once.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	holder := uuid.NewString()
	rk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, rk, holder, ttl).Result()
	switch {
	case err != nil:
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	case !ok:
		return nil, domain.ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, lm.rdb, []string{rk}, holder).Err()
		})
	}, nil
}
