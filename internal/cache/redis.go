package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"timetodo_backend/internal/algorithms"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

type RedisCache struct {
	Db *redis.Client
}

func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	const op = "cache.NewRedisCache"
	db := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &RedisCache{Db: db}, nil
}

// NewRedisCacheFromClient - для тестов и общего клиента
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{Db: client}
}

func (c *RedisCache) Get(ctx context.Context, userID string) (*algorithms.EffectiveLimits, int64, bool, error) {
	const op = "cache.Get"
	generation, err := c.generation(ctx, userID)
	if err != nil {
		return nil, 0, false, fmt.Errorf("%s: %w", op, err)
	}

	val, err := c.Db.Get(ctx, limitsKey(userID, generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("%s: %w", op, err)
	}

	var limits algorithms.EffectiveLimits
	if err := json.Unmarshal(val, &limits); err != nil {
		return nil, 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return &limits, generation, true, nil
}

// Set с ttl <= 0 ничего не пишет
func (c *RedisCache) Set(ctx context.Context, userID string, generation int64, limits algorithms.EffectiveLimits, ttl time.Duration) error {
	const op = "cache.Set"
	if ttl <= 0 {
		return nil
	}
	jsonData, err := json.Marshal(limits)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Db.Set(ctx, limitsKey(userID, generation), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate переводит пользователя на новое поколение.
// Старые записи доживают свой TTL, но уже не читаются.
func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Incr(ctx, generationKey(userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *RedisCache) generation(ctx context.Context, userID string) (int64, error) {
	generation, err := c.Db.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

func (c *RedisCache) Close() error {
	return c.Db.Close()
}
