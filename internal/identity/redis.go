package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/internal/utils"
	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "session:"

// RedisStrategy stores sessions server side. The cookie holds an opaque
// token; Redis maps its hash to the user id until the TTL lapses.
type RedisStrategy struct {
	base
	client *redis.Client
}

func newRedisStrategy(b base, client *redis.Client) *RedisStrategy {
	return &RedisStrategy{base: b, client: client}
}

// NewRedisClient connects and pings so a bad address fails at start.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStrategy) Name() string { return "redis" }

func (s *RedisStrategy) key(token string) string {
	return sessionPrefix + utils.HashToken(token)
}

func (s *RedisStrategy) Resolve(ctx context.Context, r *http.Request) (*Identity, error) {
	token := s.tokenFromRequest(r)
	if token == "" {
		return nil, nil
	}

	userID, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return s.loadUser(ctx, userID)
}

func (s *RedisStrategy) Issue(ctx context.Context, userID string) (string, error) {
	token := utils.RandomToken(32)
	if err := s.client.Set(ctx, s.key(token), userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

func (s *RedisStrategy) Revoke(ctx context.Context, r *http.Request) error {
	token := s.tokenFromRequest(r)
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
