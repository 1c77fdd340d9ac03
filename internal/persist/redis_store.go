package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisSaveKey = "survival:saves"

// RedisStore keeps save slots as JSON blobs in a Redis hash, for
// deployments where saves should outlive the host.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Save stores the snapshot under the slot id
func (s *RedisStore) Save(ctx context.Context, id string, save *SaveGame) error {
	if err := validSlotID(id); err != nil {
		return err
	}
	data, err := json.Marshal(save)
	if err != nil {
		return fmt.Errorf("marshal save %s: %w", id, err)
	}
	if err := s.client.HSet(ctx, redisSaveKey, id, string(data)).Err(); err != nil {
		return fmt.Errorf("write save %s: %w", id, err)
	}
	return nil
}

// Load reads and decodes a save slot, migrating legacy shapes
func (s *RedisStore) Load(ctx context.Context, id string) (*SaveGame, error) {
	if err := validSlotID(id); err != nil {
		return nil, err
	}
	data, err := s.client.HGet(ctx, redisSaveKey, id).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("save %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("read save %s: %w", id, err)
	}
	save, err := Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode save %s: %w", id, err)
	}
	return save, nil
}

// List returns every stored slot id
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.HKeys(ctx, redisSaveKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	return ids, nil
}

// Delete removes a save slot
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := validSlotID(id); err != nil {
		return err
	}
	if err := s.client.HDel(ctx, redisSaveKey, id).Err(); err != nil {
		return fmt.Errorf("delete save %s: %w", id, err)
	}
	return nil
}

// Close releases the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
