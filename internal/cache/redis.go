package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oggyb/wholikeme/internal/config"
)

// UnreadTTL is how long a cached unread counter lives without access.
const UnreadTTL = time.Hour

// ErrLockNotAcquired is returned when a pair lock stays taken for the whole wait budget.
var ErrLockNotAcquired = errors.New("lock not acquired")

// incrIfExists bumps a counter only when it is already cached, so a cold
// cache never starts from a wrong base. Returns -1 on miss.
var incrIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	local n = redis.call("INCR", KEYS[1])
	redis.call("EXPIRE", KEYS[1], ARGV[1])
	return n
end
return -1
`)

// releaseIfOwner deletes a lock key only if it still holds our token.
var releaseIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForUnreadCount generates Redis key for a user's unread notification count
func (c *RedisCache) KeyForUnreadCount(userID string) string {
	return fmt.Sprintf("notifications:unread:%s", userID)
}

// SetUnreadCount stores the counter and refreshes its TTL.
func (c *RedisCache) SetUnreadCount(ctx context.Context, userID string, count int64) error {
	return c.Client.Set(ctx, c.KeyForUnreadCount(userID), count, UnreadTTL).Err()
}

// GetUnreadCount returns the cached counter. ok is false on a cache miss.
func (c *RedisCache) GetUnreadCount(ctx context.Context, userID string) (count int64, ok bool, err error) {
	key := c.KeyForUnreadCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// corrupt value, treat as a miss
		_ = c.Client.Del(ctx, key).Err()
		return 0, false, nil
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, UnreadTTL).Err()
	return n, true, nil
}

// IncrUnreadCount bumps a cached counter. A missing counter is left missing
// and the next read rebuilds it from the database.
func (c *RedisCache) IncrUnreadCount(ctx context.Context, userID string) error {
	return incrIfExists.Run(ctx, c.Client, []string{c.KeyForUnreadCount(userID)}, int(UnreadTTL.Seconds())).Err()
}

// ResetUnreadCount drops the counter after read acknowledgements.
func (c *RedisCache) ResetUnreadCount(ctx context.Context, userID string) error {
	return c.Client.Del(ctx, c.KeyForUnreadCount(userID)).Err()
}

// KeyForPairLock builds an order-independent lock key for two users.
func (c *RedisCache) KeyForPairLock(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("lock:pair:%s:%s", a, b)
}

// AcquireLock takes key with SET NX, polling until wait elapses.
//
// Behavior:
//   - On success returns a release func that deletes the key only if it still owns it.
//   - Returns ErrLockNotAcquired when the wait budget runs out.
//   - Redis errors are returned as-is so callers can decide to continue unlocked.
//
// Example:
//
//	release, err := cache.AcquireLock(ctx, cache.KeyForPairLock(a, b), 5*time.Second, 2*time.Second)
//	if err == nil { defer release() }
func (c *RedisCache) AcquireLock(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	backoff := 20 * time.Millisecond

	for {
		ok, err := c.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// fresh context: the request context may already be cancelled
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseIfOwner.Run(rctx, c.Client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

// KeyForRateLimit generates the fixed-window counter key for a client.
func (c *RedisCache) KeyForRateLimit(client string, window time.Duration) string {
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	bucket := time.Now().Unix() / secs
	return fmt.Sprintf("ratelimit:%s:%d", client, bucket)
}

// Hit increments a fixed-window counter and returns the count within the window.
func (c *RedisCache) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		_ = c.Client.Expire(ctx, key, window).Err()
	}
	return n, nil
}
