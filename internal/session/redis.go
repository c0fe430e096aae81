package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"car-showcase/internal/identity"
)

// RedisBackend 会话落 redis，多实例部署时共享
type RedisBackend struct {
	RDB    *redis.Client
	Prefix string
}

func NewRedisBackend(addr, pass string, db int) *RedisBackend {
	return &RedisBackend{
		RDB:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		Prefix: "sess:",
	}
}

func (r *RedisBackend) key(sid string) string { return r.Prefix + sid }

func (r *RedisBackend) Get(ctx context.Context, sid string) (*identity.Session, error) {
	b, err := r.RDB.Get(ctx, r.key(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s identity.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisBackend) Put(ctx context.Context, sid string, s *identity.Session, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.RDB.Set(ctx, r.key(sid), b, ttl).Err()
}

func (r *RedisBackend) Del(ctx context.Context, sid string) error {
	return r.RDB.Del(ctx, r.key(sid)).Err()
}
