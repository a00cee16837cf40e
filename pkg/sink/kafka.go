package sink

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"mediacrawl/pkg/config"
	"mediacrawl/pkg/logger"
)

// KafkaSink publishes records to a topic, keyed by item id so records of
// the same item land on the same partition.
type KafkaSink struct {
	writer *kafka.Writer
	log    logger.Logger
}

// NewKafkaSink creates a writer against the configured broker.
func NewKafkaSink(cfg config.KafkaSinkConf, log logger.Logger) *KafkaSink {
	if log == nil {
		log = logger.NewNopLogger()
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Broker),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaSink{writer: writer, log: log}
}

// Write implements Sink.
func (s *KafkaSink) Write(ctx context.Context, rec Record) error {
	payload, err := rec.marshal()
	if err != nil {
		return err
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.Platform + ":" + rec.ItemID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing record %s: %w", rec.ItemID, err)
	}
	return nil
}

// Close flushes pending messages.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
