package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mediacrawl/pkg/config"
	"mediacrawl/pkg/logger"
)

// RedisSink pushes records onto a Redis list for downstream consumers.
type RedisSink struct {
	client *redis.Client
	key    string
	log    logger.Logger
}

// NewRedisSink connects to the configured Redis instance.
func NewRedisSink(cfg config.RedisSink, log logger.Logger) *RedisSink {
	if log == nil {
		log = logger.NewNopLogger()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisSink{client: client, key: cfg.Key, log: log}
}

// Write implements Sink.
func (s *RedisSink) Write(ctx context.Context, rec Record) error {
	payload, err := rec.marshal()
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("pushing record %s to redis: %w", rec.ItemID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
