package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmercer/gamemaster/pkg/chat"
)

// historyTTL bounds how long an idle character's transcript is kept.
const historyTTL = 72 * time.Hour

// maxHistoryEntries caps the stored transcript. Older messages are
// trimmed; the prompt window is far smaller anyway.
const maxHistoryEntries = 500

// RedisStorage implements the Storage interface using a Redis list per
// character.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance from a redis:// URL.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisStorage{
		client: redis.NewClient(opt),
		logger: logger,
	}, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func historyKey(character string) string {
	return "history:" + character
}

// AppendHistory pushes messages onto the character's transcript list.
func (r *RedisStorage) AppendHistory(ctx context.Context, character string, messages ...chat.Message) error {
	if len(messages) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			r.logger.Error("Failed to marshal history message", "character", character, "error", err)
			return fmt.Errorf("failed to marshal history message: %w", err)
		}
		values = append(values, string(data))
	}

	key := historyKey(character)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -maxHistoryEntries, -1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to append history", "character", character, "error", err)
		return fmt.Errorf("failed to append history: %w", err)
	}

	return nil
}

// GetHistory returns the character's full stored transcript, oldest first.
// A character with no history yields an empty slice, not an error.
func (r *RedisStorage) GetHistory(ctx context.Context, character string) ([]chat.Message, error) {
	raw, err := r.client.LRange(ctx, historyKey(character), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []chat.Message{}, nil
		}
		r.logger.Error("Failed to load history", "character", character, "error", err)
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]chat.Message, 0, len(raw))
	for _, entry := range raw {
		var msg chat.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			r.logger.Warn("Skipping unreadable history entry", "character", character, "error", err)
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// ClearHistory removes the character's stored transcript.
func (r *RedisStorage) ClearHistory(ctx context.Context, character string) error {
	if err := r.client.Del(ctx, historyKey(character)).Err(); err != nil {
		r.logger.Error("Failed to clear history", "character", character, "error", err)
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
