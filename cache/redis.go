package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"examview-server/config"
	"examview-server/models"
)

const keyPrefix = "examview:exam:"

// ExamCache shares decoded exam records between server instances.
type ExamCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewExamCache connects to Redis. It returns nil, nil when no address is configured.
func NewExamCache(cfg config.RedisConfig) (*ExamCache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &ExamCache{client: client, ttl: cfg.TTL}, nil
}

func examKey(id int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, id)
}

// Get returns the cached exam, or ok=false on a miss. A nil cache always misses.
func (c *ExamCache) Get(ctx context.Context, id int64) (*models.ExamRecord, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, examKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read exam %d from cache: %w", id, err)
	}
	var rec models.ExamRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached exam %d: %w", id, err)
	}
	return &rec, true, nil
}

// Set stores an exam for the configured TTL.
func (c *ExamCache) Set(ctx context.Context, rec *models.ExamRecord) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode exam %d for cache: %w", rec.ID, err)
	}
	return c.client.Set(ctx, examKey(rec.ID), raw, c.ttl).Err()
}

// Delete evicts exams, e.g. after re-ingestion.
func (c *ExamCache) Delete(ctx context.Context, ids ...int64) error {
	if c == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = examKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close releases the connection.
func (c *ExamCache) Close() error {
	if c != nil && c.client != nil {
		return c.client.Close()
	}
	return nil
}
