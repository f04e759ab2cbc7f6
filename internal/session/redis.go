package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mx32-chat/backend/internal/llm"
	"github.com/mx32-chat/backend/pkg/logger"
)

// RedisStore keeps conversation history in Redis lists so multiple
// instances can share sessions. Each session is one list of
// JSON-encoded messages trimmed to the window, refreshed with a TTL on
// every append.
type RedisStore struct {
	client *redis.Client
	window int
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db, window int, ttl time.Duration) (*RedisStore, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("Redis session store connected", zap.String("addr", addr))
	return &RedisStore{client: client, window: window, ttl: ttl}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return "session:" + sessionID
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, messages ...llm.Message) error {
	if len(messages) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, data)
	}

	key := s.key(sessionID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-s.window), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}

	history := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var m llm.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			// Skip corrupt entries rather than losing the session.
			logger.Warn("Skipping corrupt session entry",
				zap.String("session_id", sessionID), zap.Error(err))
			continue
		}
		history = append(history, m)
	}
	return history, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
