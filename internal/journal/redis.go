package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
)

const (
	DefaultKeyPrefix = "interview:transcript:"
	pingTimeout      = 5 * time.Second
)

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key-prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Redis stores each session transcript as a list of JSON messages.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// Dial connects to the configured server and checks it answers.
func Dial(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	r, err := NewRedis(ctx, client, cfg.KeyPrefix, cfg.TTL)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return r, nil
}

func NewRedis(ctx context.Context, client *redis.Client, keyPrefix string, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{client: client, keyPrefix: keyPrefix, ttl: ttl}, nil
}

func (r *Redis) Key(sessionID string) string {
	return r.keyPrefix + sessionID
}

// Append pushes msg to the session list and refreshes its expiry in one transaction.
func (r *Redis) Append(ctx context.Context, sessionID string, msg ai.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message for session %s: %w", sessionID, err)
	}

	key := r.Key(sessionID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append message for session %s: %w", sessionID, err)
	}
	return nil
}

func (r *Redis) History(ctx context.Context, sessionID string) ([]ai.Message, error) {
	raw, err := r.client.LRange(ctx, r.Key(sessionID), 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []ai.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history for session %s: %w", sessionID, err)
	}

	return decodeHistory(sessionID, raw)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func decodeHistory(sessionID string, raw []string) ([]ai.Message, error) {
	messages := make([]ai.Message, 0, len(raw))
	for i, item := range raw {
		var msg ai.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode message %d for session %s: %w", i, sessionID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
