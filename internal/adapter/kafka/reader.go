package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/watchlink/internal/config"
	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/location"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes position samples from a Kafka topic.
// It implements location.Source.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a Kafka consumer for the configured location topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaLocationTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &Reader{reader: r, logger: logger}
}

// Subscribe streams decoded samples until ctx ends or a fetch fails.
// Malformed messages are logged, committed and skipped.
func (r *Reader) Subscribe(ctx context.Context) (*location.Subscription, error) {
	sub, subCtx := location.NewSubscription(ctx)

	go func() {
		for {
			msg, err := r.reader.FetchMessage(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					sub.Finish(nil)
					return
				}
				sub.Finish(fmt.Errorf("fetch location message: %w", err))
				return
			}

			sample, err := mapMessageToSample(msg)
			if err != nil {
				r.logger.Warn("skipping malformed location message",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			} else if !sub.Send(sample) {
				sub.Finish(nil)
				return
			}

			if err := r.reader.CommitMessages(subCtx, msg); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Warn("commit location message failed", "offset", msg.Offset, "error", err)
			}
		}
	}()

	return sub, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToSample decodes a message value, falling back to the broker
// timestamp when the payload carries none.
func mapMessageToSample(msg kafkago.Message) (domain.PositionSample, error) {
	sample, err := domain.DecodeSample(msg.Value)
	if err != nil {
		return domain.PositionSample{}, err
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = msg.Time
	}
	return sample, nil
}

var _ location.Source = (*Reader)(nil)
