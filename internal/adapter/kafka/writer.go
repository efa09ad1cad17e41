package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/watchlink/internal/config"
	"github.com/couchcryptid/watchlink/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const sampleType = "position"

// Writer produces processed samples to a Kafka topic.
// It implements pipeline.SampleSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sample topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSampleTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes one sample record and writes it to the sample topic.
func (w *Writer) Publish(ctx context.Context, rec domain.SampleRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write sample message: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SampleRecord into a Kafka message keyed by
// session so one wearable session stays on one partition.
func serializeToMessage(rec domain.SampleRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sample record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.SessionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "sample_type", Value: []byte(sampleType)},
			{Key: "recorded_at", Value: []byte(rec.Sample.Timestamp.UTC().Format(time.RFC3339))},
		},
	}, nil
}
