package redis_store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmsharma/researcher/internal/research"
)

// Store keeps run state in Redis with a TTL so session data expires on
// its own.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(addr, password string, db int, ttl time.Duration) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: rdb, ttl: ttl}
}

// Ping checks connectivity, for startup validation.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func key(id string) string { return fmt.Sprintf("run:%s", id) }

func (s *Store) Save(ctx context.Context, run research.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return s.client.Set(ctx, key(run.ID), data, s.ttl).Err()
}

func (s *Store) Get(ctx context.Context, id string) (research.Run, bool, error) {
	val, err := s.client.Get(ctx, key(id)).Result()
	if err == redis.Nil {
		return research.Run{}, false, nil
	}
	if err != nil {
		return research.Run{}, false, err
	}
	var run research.Run
	if err := json.Unmarshal([]byte(val), &run); err != nil {
		return research.Run{}, false, fmt.Errorf("unmarshal run: %w", err)
	}
	return run, true, nil
}
