package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLocker is a best-effort SetNX lock. The value is this holder's id so
// Unlock never removes a lock taken over by someone else after expiry.
type RedisLocker struct {
	client redis.Cmdable
	owner  string
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(client redis.Cmdable, owner string) *RedisLocker {
	return &RedisLocker{client: client, owner: owner}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, l.owner, ttl).Result()
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	return unlockScript.Run(ctx, l.client, []string{key}, l.owner).Err()
}
