// cache содержит общее для всех экземпляров сервиса хранилище отозванных
// токенов на Redis.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/token"
)

// minTTL — нижняя граница TTL ключа: SET с нулевым TTL сделал бы ключ вечным.
const minTTL = time.Second

// RedisRevocations хранит отозванные jti как ключи prefix+kind+":"+jti
// с TTL, равным остатку жизни токена. Добавление атомарно (SET NX).
type RedisRevocations struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisRevocations создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:revoked:".
func NewRedisRevocations(ctx context.Context, redisURL, prefix string) (*RedisRevocations, error) {
	const op = "cache.NewRedisRevocations"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewRedisRevocationsFromClient(rdb, prefix), nil
}

// NewRedisRevocationsFromClient оборачивает готовый клиент.
func NewRedisRevocationsFromClient(rdb *redis.Client, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = "auth:revoked:"
	}

	return &RedisRevocations{rdb: rdb, prefix: prefix}
}

func (c *RedisRevocations) key(kind models.TokenKind, jti string) string {
	return c.prefix + string(kind) + ":" + jti
}

// Revoke добавляет jti, если его ещё нет; added=false — jti уже был отозван.
func (c *RedisRevocations) Revoke(ctx context.Context, kind models.TokenKind, jti string, expiresAt time.Time) (bool, error) {
	const op = "cache.RedisRevocations.Revoke"

	ttl := time.Until(expiresAt)
	if ttl < minTTL {
		ttl = minTTL
	}

	added, err := c.rdb.SetNX(ctx, c.key(kind, jti), expiresAt.Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return added, nil
}

// IsRevoked сообщает, отозван ли jti.
func (c *RedisRevocations) IsRevoked(ctx context.Context, kind models.TokenKind, jti string) (bool, error) {
	const op = "cache.RedisRevocations.IsRevoked"

	n, err := c.rdb.Exists(ctx, c.key(kind, jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n == 1, nil
}

// Ping проверяет доступность Redis (для readiness).
func (c *RedisRevocations) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (c *RedisRevocations) Close() error { return c.rdb.Close() }

var _ token.RevocationStore = (*RedisRevocations)(nil)
