package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"taeu.kr/storeadmin/internal/session"
)

var _ session.KV = (*Redis)(nil)

const defaultRedisPrefix = "storeadmin:kv:"

// Redis는 여러 인스턴스가 세션을 공유할 때 쓰는 KV
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// OpenRedis는 redis://:pass@host:6379/0 형식의 URL로 접속한다
func OpenRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewRedis(rdb, ""), nil
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(namespace, key string) string {
	return r.prefix + namespace + ":" + key
}

func (r *Redis) Get(ctx context.Context, namespace, key string) (string, error) {
	value, err := r.rdb.Get(ctx, r.key(namespace, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

func (r *Redis) Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.key(namespace, key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(namespace, k)
	}
	return r.rdb.Del(ctx, full...).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
