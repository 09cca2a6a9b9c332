package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists bookmarks in Redis, so multiple extractor
// processes (or replacement processes across deploys) can share
// replication progress for the same stream.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and verifies reachability with a Ping.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis bookmark store: %w", err)
	}

	return &RedisStore{client: client, prefix: "tap-mongodb:bookmark:"}, nil
}

func (s *RedisStore) key(streamID string) string {
	return s.prefix + streamID
}

func (s *RedisStore) GetBookmark(ctx context.Context, streamID string) (string, error) {
	value, err := s.client.Get(ctx, s.key(streamID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read bookmark for %s: %w", streamID, err)
	}
	return value, nil
}

func (s *RedisStore) SetBookmark(ctx context.Context, streamID, value string) error {
	if err := s.client.Set(ctx, s.key(streamID), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write bookmark for %s: %w", streamID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
