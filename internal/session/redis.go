package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "badge_face:"

// RedisStore keeps badge faces as JSON values with native key expiry.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, face *BadgeFace, ttl time.Duration) error {
	value, err := json.Marshal(stamp(face, s.now(), ttl))
	if err != nil {
		return fmt.Errorf("marshal badge face: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(sessionID), value, ttl).Err(); err != nil {
		return fmt.Errorf("save badge face: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*BadgeFace, error) {
	value, err := s.client.Get(ctx, redisKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load badge face: %w", err)
	}

	var face BadgeFace
	if err := json.Unmarshal(value, &face); err != nil {
		return nil, fmt.Errorf("unmarshal badge face: %w", err)
	}
	return &face, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete badge face: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
