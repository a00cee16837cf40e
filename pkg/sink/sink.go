package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mediacrawl/pkg/config"
	"mediacrawl/pkg/crawler"
	"mediacrawl/pkg/logger"
)

// Record is the envelope every sink persists.
type Record struct {
	Platform  string      `json:"platform"`
	Kind      string      `json:"kind"`
	ItemID    string      `json:"item_id"`
	CreatedAt int64       `json:"created_at"`
	FetchedAt time.Time   `json:"fetched_at"`
	Data      interface{} `json:"data"`
}

// NewRecord wraps a crawled item for persistence.
func NewRecord(platform crawler.Platform, item crawler.Item) Record {
	return Record{
		Platform:  string(platform),
		Kind:      string(item.Kind),
		ItemID:    item.ID,
		CreatedAt: item.CreatedAt,
		FetchedAt: time.Now().UTC(),
		Data:      item.Data,
	}
}

func (r Record) marshal() ([]byte, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling record %s/%s: %w", r.Platform, r.ItemID, err)
	}
	return payload, nil
}

// Sink persists crawled records. Writes are fire-and-forget from the
// engine's perspective; durability guarantees belong to the backend.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// New builds the sink selected by the configuration.
func New(cfg config.SinkConfig, log logger.Logger) (Sink, error) {
	switch strings.ToLower(cfg.Type) {
	case "file":
		return NewFileSink(cfg.File.Directory, log)
	case "redis":
		return NewRedisSink(cfg.Redis, log), nil
	case "postgres":
		return NewPostgresSink(context.Background(), cfg.Postgres.DSN, log)
	case "kafka":
		return NewKafkaSink(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}
