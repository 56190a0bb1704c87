package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Префикс пространства ключей клиента в Redis
const keyPrefix = "storefront:"

// RedisStore реализует StateStorage поверх Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore создает новое хранилище Redis
func NewRedisStore(redisURL string, ctx context.Context) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)

	// Проверка соединения с Redis
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &RedisStore{
		client: client,
	}, nil
}

// Client возвращает низкоуровневый клиент Redis (для health-проверок)
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get читает значение под ключом и декодирует его в v
func (s *RedisStore) Get(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get %q from Redis: %w", key, err)
	}

	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}

	return nil
}

// Set сериализует v и сохраняет его под ключом.
// Значения хранятся без TTL: состояние клиента живет до явного удаления.
func (s *RedisStore) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}

	if err := s.client.Set(ctx, keyPrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %q to Redis: %w", key, err)
	}

	return nil
}

// Delete удаляет значение под ключом
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %q from Redis: %w", key, err)
	}

	return nil
}
