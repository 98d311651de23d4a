package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/allbin/cleanroom/internal/config"
	"github.com/allbin/cleanroom/reading"
)

// RedisSink publishes every reading as JSON on a channel and keeps the most
// recent ones in a capped list.
type RedisSink struct {
	client  *redis.Client
	channel string
	history int64
	logger  *zap.Logger
}

func NewRedisSink(cfg config.RedisConfig, logger *zap.Logger) *RedisSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisSink{
		client:  client,
		channel: cfg.Channel,
		history: cfg.History,
		logger:  logger.With(zap.String("sink", "redis"), zap.String("channel", cfg.Channel)),
	}
}

// Ping checks that the server is reachable
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// HistoryKey is the list holding the latest readings
func (s *RedisSink) HistoryKey() string {
	return s.channel + ":history"
}

// Record implements the recorder sink interface
func (s *RedisSink) Record(ctx context.Context, r reading.Reading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, s.channel, data)
		if s.history > 0 {
			pipe.LPush(ctx, s.HistoryKey(), data)
			pipe.LTrim(ctx, s.HistoryKey(), 0, s.history-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
