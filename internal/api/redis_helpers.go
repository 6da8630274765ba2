package api

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// 登录限流相关的 Redis key 统一在这里拼，避免计数、加锁、解锁
// 三处各拼各的导致 key 对不上。
func loginRateKey(ip, username string, now time.Time) string {
	return "rate:login:" + ip + ":" + strings.ToLower(username) + ":" + now.UTC().Format("2006010215")
}

func loginLockKey(username string) string {
	return "lock:login:" + strings.ToLower(username)
}

func loginFailKey(username string) string {
	return "lock:login:fail:" + strings.ToLower(username)
}

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// incrWithTTL 自增计数器，首次创建时设置过期时间。
func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}
