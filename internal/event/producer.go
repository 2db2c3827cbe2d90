package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/luxemarket/storefront/internal/domain"
	pkgkafka "github.com/luxemarket/storefront/pkg/kafka"
	"github.com/luxemarket/storefront/pkg/logger"
)

// Kafka topics for storefront domain events.
const (
	TopicOrderPlaced            = "storefront.order.placed"
	TopicNotificationDispatched = "storefront.notification.dispatched"
)

// Event types carried in the envelope.
const (
	EventOrderPlaced            = "order.placed"
	EventNotificationDispatched = "notification.dispatched"
)

const (
	AggregateTypeOrder = "order"
	SourceStorefront   = "storefront"
)

// Publisher is the subset of the Kafka producer used here. *pkgkafka.Producer
// and *pkgkafka.NopPublisher both satisfy it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// OrderPlacedData is the payload of order.placed.
type OrderPlacedData struct {
	OrderID       string          `json:"order_id"`
	SessionID     string          `json:"session_id,omitempty"`
	CustomerEmail string          `json:"customer_email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Items         []OrderItemData `json:"items"`
}

// OrderItemData is one item within order.placed.
type OrderItemData struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NotificationDispatchedData is the payload of notification.dispatched.
type NotificationDispatchedData struct {
	OrderID  string `json:"order_id"`
	Method   string `json:"method"`
	Fallback bool   `json:"fallback"`
}

// Producer publishes storefront domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	data := OrderPlacedData{
		OrderID:       order.ID,
		SessionID:     logger.SessionIDFromContext(ctx),
		CustomerEmail: order.Customer.Email,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: string(order.PaymentMethod),
		Items:         items,
	}

	return p.publish(ctx, TopicOrderPlaced, EventOrderPlaced, order.ID, data)
}

// PublishNotificationDispatched publishes a notification.dispatched event.
func (p *Producer) PublishNotificationDispatched(ctx context.Context, orderID string, result domain.DispatchResult) error {
	data := NotificationDispatchedData{
		OrderID:  orderID,
		Method:   result.Method,
		Fallback: result.Fallback,
	}
	return p.publish(ctx, TopicNotificationDispatched, EventNotificationDispatched, orderID, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, orderID string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, orderID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt = evt.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("order_id", orderID),
	)
	return nil
}
