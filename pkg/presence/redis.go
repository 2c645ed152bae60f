package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/okanero/flowstudio/pkg/models"
)

// DefaultLockTTL bounds how long an advisory claim survives a crashed
// holder before expiring on its own.
const DefaultLockTTL = 2 * time.Minute

const redisLockPrefix = "flowstudio:fieldlock:"

// releaseScript deletes the key only when it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLockTable is the shared lock table for multi-instance deployments.
// Claims carry a TTL so a crashed holder cannot pin a field forever.
type RedisLockTable struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLockTable creates a lock table over an existing redis client.
func NewRedisLockTable(client redis.UniversalClient, ttl time.Duration) *RedisLockTable {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	return &RedisLockTable{client: client, ttl: ttl}
}

func (t *RedisLockTable) key(entityID, field string) string {
	return redisLockPrefix + lockKey(entityID, field)
}

func (t *RedisLockTable) Acquire(ctx context.Context, lock models.FieldLock) error {
	key := t.key(lock.EntityID, lock.Field)

	ok, err := t.client.SetNX(ctx, key, lock.HolderID, t.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	if ok {
		return nil
	}

	holder, err := t.client.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to inspect lock %s: %w", key, err)
	}

	if holder == lock.HolderID {
		// Refresh the own claim.
		if err := t.client.Expire(ctx, key, t.ttl).Err(); err != nil {
			return fmt.Errorf("failed to refresh lock %s: %w", key, err)
		}

		return nil
	}

	return fmt.Errorf("%w: held by %s", ErrFieldLocked, holder)
}

func (t *RedisLockTable) Release(ctx context.Context, entityID, field, holderID string) error {
	key := t.key(entityID, field)

	released, err := releaseScript.Run(ctx, t.client, []string{key}, holderID).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}

	if released == 0 {
		holder, getErr := t.client.Get(ctx, key).Result()
		if errors.Is(getErr, redis.Nil) || holder == "" {
			return nil
		}

		return fmt.Errorf("%w: held by %s", ErrNotHolder, holder)
	}

	return nil
}

func (t *RedisLockTable) Holder(ctx context.Context, entityID, field string) (string, error) {
	holder, err := t.client.Get(ctx, t.key(entityID, field)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to read lock holder: %w", err)
	}

	return holder, nil
}
