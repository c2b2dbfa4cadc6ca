package changefeed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// refreshScript extends the TTL only if this holder still owns it.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLock elects the single instance that runs the store listener.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
	logger *zap.Logger

	cancel context.CancelFunc
}

// NewRedisLock creates a lock on key with the given TTL.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *RedisLock {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLock{client: client, key: key, token: uuid.NewString(), ttl: ttl, logger: logger}
}

// Acquire polls until the lock is held, then keeps refreshing it in the background.
func (l *RedisLock) Acquire(ctx context.Context) (context.Context, error) {
	for {
		ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !sleepCtx(ctx, l.ttl/3) {
			return nil, ctx.Err()
		}
	}

	held, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	go l.keepAlive(held, cancel)
	l.logger.Info("acquired change listener lock", zap.String("key", l.key))
	return held, nil
}

// Release gives the lock up if still held.
func (l *RedisLock) Release(ctx context.Context) {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && err != redis.Nil {
		l.logger.Warn("release change listener lock", zap.Error(err))
	}
}

func (l *RedisLock) keepAlive(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
			if err != nil || res == 0 {
				l.logger.Warn("lost change listener lock", zap.Error(err))
				cancel()
				return
			}
		}
	}
}
