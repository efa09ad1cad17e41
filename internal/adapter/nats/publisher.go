// Package nats publishes processed samples to a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/watchlink/internal/config"
	"github.com/couchcryptid/watchlink/internal/domain"
	natsgo "github.com/nats-io/nats.go"
)

const (
	connectTimeout = 5 * time.Second
	reconnectWait  = 2 * time.Second
	maxReconnects  = -1
)

var errDisconnected = errors.New("nats: connection not established")

// Publisher implements pipeline.SampleSink over a NATS connection.
type Publisher struct {
	conn    *natsgo.Conn
	subject string
	logger  *slog.Logger
}

// NewPublisher connects to cfg.NATSURL. The connection reconnects
// indefinitely after it has been established once.
func NewPublisher(cfg *config.Config, logger *slog.Logger) (*Publisher, error) {
	opts := []natsgo.Option{
		natsgo.Name("watchlink"),
		natsgo.Timeout(connectTimeout),
		natsgo.ReconnectWait(reconnectWait),
		natsgo.MaxReconnects(maxReconnects),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		natsgo.ReconnectHandler(func(c *natsgo.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	}

	conn, err := natsgo.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.NATSURL, err)
	}
	logger.Info("nats connection established", "url", cfg.NATSURL, "subject", cfg.NATSSubject)

	return &Publisher{conn: conn, subject: cfg.NATSSubject, logger: logger}, nil
}

// Publish sends one sample record. NATS publishes are fire-and-forget; ctx
// is only checked before sending.
func (p *Publisher) Publish(ctx context.Context, rec domain.SampleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	return nil
}

// CheckReadiness reports whether the connection is currently up.
func (p *Publisher) CheckReadiness(_ context.Context) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return errDisconnected
	}
	return nil
}

// Close drains pending messages, falling back to an immediate close.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain nats connection, closing immediately", "error", err)
		p.conn.Close()
	}
	return nil
}

func encodeRecord(rec domain.SampleRecord) ([]byte, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("serialize sample record: %w", err)
	}
	return payload, nil
}
