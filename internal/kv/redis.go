package kv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis：多实例部署时共享同一份配置；键加前缀避免与其他业务冲突
type Redis struct {
	rc     *redis.Client
	prefix string
}

func NewRedis(rc *redis.Client, prefix string) *Redis {
	return &Redis{rc: rc, prefix: prefix}
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rc.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		err = ErrNotFound
	}
	observe("redis", "get", err)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Redis) Set(ctx context.Context, key string, val []byte) error {
	err := s.rc.Set(ctx, s.prefix+key, val, 0).Err()
	observe("redis", "set", err)
	return err
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	err := s.rc.Del(ctx, s.prefix+key).Err()
	observe("redis", "del", err)
	return err
}
