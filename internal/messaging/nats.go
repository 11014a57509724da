// Package messaging publishes user domain events to NATS.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/duynhne/user-service/internal/core/domain"
)

// NATSPublisher implements domain.EventPublisher on a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// Connect dials url and returns a publisher whose subjects are prefixed with prefix.
func Connect(url, prefix, clientName string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %q: %w", url, err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// Publish encodes event as JSON and sends it on <prefix>.<event type>.
func (p *NATSPublisher) Publish(ctx context.Context, event domain.Event) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Type, err)
	}
	if err := p.conn.Publish(subject(p.prefix, event.Type), payload); err != nil {
		return fmt.Errorf("publish event %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}

func subject(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// NopPublisher discards events; used when NATS_URL is not configured.
type NopPublisher struct{}

// Publish implements domain.EventPublisher.
func (NopPublisher) Publish(context.Context, domain.Event) error { return nil }
