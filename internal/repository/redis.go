package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"venueq/internal/config"
	"venueq/internal/models"
)

const (
	stateKeyPrefix = "operator_state:"
	rateKeyPrefix  = "rate_limit:"
)

// RedisStateRepository держит состояние операторов и счетчики частоты
// запросов в Redis, общие для всех процессов сервиса.
type RedisStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStateRepository(client *redis.Client, ttl time.Duration) *RedisStateRepository {
	return &RedisStateRepository{
		client: client,
		ttl:    ttl,
	}
}

func stateKey(vendorID int64) string {
	return stateKeyPrefix + strconv.FormatInt(vendorID, 10)
}

func (r *RedisStateRepository) GetState(ctx context.Context, vendorID int64) (*models.OperatorState, error) {
	raw, err := r.client.Get(ctx, stateKey(vendorID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get operator state: %w", err)
	}

	var state models.OperatorState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode operator state: %w", err)
	}
	return &state, nil
}

func (r *RedisStateRepository) SetState(ctx context.Context, state *models.OperatorState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode operator state: %w", err)
	}
	if err := r.client.Set(ctx, stateKey(state.VendorID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set operator state: %w", err)
	}
	return nil
}

// CheckRateLimit advances a fixed-window counter for the key. INCR and
// EXPIRE run in one pipeline so the key cannot be left without a TTL if
// the connection drops between the two commands.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := rateKeyPrefix + key

	pipe := r.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("advance rate counter: %w", err)
	}

	return count.Val() <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
