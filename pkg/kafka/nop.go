package kafka

import (
	"context"
	"log/slog"
)

// NopPublisher stands in for Producer when no brokers are configured. Events
// are logged at debug level and dropped.
type NopPublisher struct {
	logger *slog.Logger
}

// NewNopPublisher returns a publisher that drops events.
func NewNopPublisher(logger *slog.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

// Publish drops event.
func (n *NopPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	n.logger.DebugContext(ctx, "kafka disabled, event dropped",
		slog.String("topic", topic),
		slog.String("event_type", event.EventType),
	)
	return nil
}

// Ping always succeeds.
func (n *NopPublisher) Ping(context.Context) error { return nil }

// Close is a no-op.
func (n *NopPublisher) Close() error { return nil }
