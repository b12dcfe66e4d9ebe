package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/xela07ax/linc-gateway/internal/infra"
)

// TokenStore: долговременное хранилище выданных токенов.
// Выдача токенов: забота внешнего сервиса, шлюз только читает.
type TokenStore interface {
	// Lookup возвращает клиента, которому выдан токен. found=false: токена нет или он истек.
	Lookup(ctx context.Context, token string) (clientID string, found bool, err error)
}

// RedisTokenStore хранит хеш токена, а TTL ключа равен сроку жизни токена.
// Истекший токен Redis удаляет сам, поэтому наличие ключа = токен действителен.
type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) Lookup(ctx context.Context, token string) (string, bool, error) {
	clientID, err := s.rdb.Get(ctx, infra.TokenKey(HashToken(token))).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("token store: %w", err)
	}
	return clientID, true, nil
}

// Put кладет токен в хранилище. Используется lincctl для локальных окружений.
func (s *RedisTokenStore) Put(ctx context.Context, token, clientID string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("token store: ttl must be positive")
	}
	if err := s.rdb.Set(ctx, infra.TokenKey(HashToken(token)), clientID, ttl).Err(); err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	return nil
}

// Revoke удаляет токен раньше срока.
func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, infra.TokenKey(HashToken(token))).Err()
}

// HashToken: blake2b-256, чтобы сырые токены не попадали в Redis
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
