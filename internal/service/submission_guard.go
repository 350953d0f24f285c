package service

import (
	"context"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultGuardTTL = 10 * time.Second

// 仅删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmissionGuard serializes submits of one user on one resource across instances.
// A nil Redis client disables it; the database constraints still hold.
type SubmissionGuard struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewSubmissionGuard(rdb *redis.Client) *SubmissionGuard {
	return &SubmissionGuard{Redis: rdb, TTL: defaultGuardTTL}
}

func lockKey(kind string, userID, resourceID uint) string {
	return fmt.Sprintf("lock:%s:%d:%d", kind, userID, resourceID)
}

// Acquire takes the lock or returns ErrSubmissionInProgress. Redis failures fail open.
func (g *SubmissionGuard) Acquire(ctx context.Context, kind string, userID, resourceID uint) (func(), error) {
	noop := func() {}
	if g == nil || g.Redis == nil {
		return noop, nil
	}

	key := lockKey(kind, userID, resourceID)
	token := uuid.NewString()
	ttl := g.TTL
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}

	ok, err := g.Redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		logger.Log.Warn("Submission guard unavailable", zap.String("key", key), zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, util.ErrSubmissionInProgress
	}

	return func() {
		if err := releaseScript.Run(context.Background(), g.Redis, []string{key}, token).Err(); err != nil && err != redis.Nil {
			logger.Log.Warn("Failed to release submission guard", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
