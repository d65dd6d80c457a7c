package repository

import (
	"context"
	"time"

	redisapp "ali_portfolio/internal/storage/redis"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// RedisSessionRepo хранит отозванные сессии в Redis до истечения их срока
type RedisSessionRepo struct {
	Client *redisapp.Client
}

func NewRedisSessionRepo(client *redisapp.Client) *RedisSessionRepo {
	return &RedisSessionRepo{Client: client}
}

func (r *RedisSessionRepo) RevokeSession(ctx context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.Client.Set(ctx, revokedSessionKey(id), "1", ttl).Err()
}

func (r *RedisSessionRepo) IsSessionRevoked(ctx context.Context, id string) (bool, error) {
	val, err := r.Client.Get(ctx, revokedSessionKey(id)).Result()
	if err == redis.Nil {
		return false, nil
	}
	return val == "1", err
}

func revokedSessionKey(id string) string {
	return redisapp.Key("revoked", id)
}

// CacheSessionRepo держит отзывы в памяти процесса, когда Redis не настроен
type CacheSessionRepo struct {
	cache *cache.Cache
}

func NewCacheSessionRepo() *CacheSessionRepo {
	return &CacheSessionRepo{cache: cache.New(24*time.Hour, 10*time.Minute)}
}

func (r *CacheSessionRepo) RevokeSession(_ context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.cache.Set(id, struct{}{}, ttl)
	return nil
}

func (r *CacheSessionRepo) IsSessionRevoked(_ context.Context, id string) (bool, error) {
	_, found := r.cache.Get(id)
	return found, nil
}
