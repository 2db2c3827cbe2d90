package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxemarket/storefront/internal/domain"
	pkgkafka "github.com/luxemarket/storefront/pkg/kafka"
	"github.com/luxemarket/storefront/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, event: event})
	return nil
}

func newTestProducer(pub Publisher) *Producer {
	return NewProducer(pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishOrderPlaced(t *testing.T) {
	pub := &fakePublisher{}
	p := newTestProducer(pub)

	ctx := logger.WithCorrelationID(context.Background(), "corr-9")
	ctx = logger.WithSessionID(ctx, "sess-1")

	order := &domain.Order{
		ID:            "o-1",
		Customer:      domain.Customer{Email: "ada@example.com"},
		TotalAmount:   decimal.RequireFromString("150.00"),
		PaymentMethod: domain.PaymentCashOnDelivery,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Quantity: 2, UnitPrice: decimal.RequireFromString("45.00")},
			{ProductID: "p-2", Quantity: 1, UnitPrice: decimal.RequireFromString("60.00")},
		},
	}

	require.NoError(t, p.PublishOrderPlaced(ctx, order))
	require.Len(t, pub.sent, 1)

	got := pub.sent[0]
	assert.Equal(t, TopicOrderPlaced, got.topic)
	assert.Equal(t, EventOrderPlaced, got.event.EventType)
	assert.Equal(t, "o-1", got.event.AggregateID)
	assert.Equal(t, AggregateTypeOrder, got.event.AggregateType)
	assert.Equal(t, SourceStorefront, got.event.Source)
	assert.Equal(t, "corr-9", got.event.CorrelationID)

	var data OrderPlacedData
	require.NoError(t, got.event.UnmarshalData(&data))
	assert.Equal(t, "sess-1", data.SessionID)
	assert.Equal(t, "cash_on_delivery", data.PaymentMethod)
	assert.True(t, data.TotalAmount.Equal(decimal.NewFromInt(150)))
	require.Len(t, data.Items, 2)
	assert.True(t, data.Items[0].UnitPrice.Equal(decimal.NewFromInt(45)))
}

func TestPublishNotificationDispatched(t *testing.T) {
	pub := &fakePublisher{}
	p := newTestProducer(pub)

	err := p.PublishNotificationDispatched(context.Background(), "o-1",
		domain.DispatchResult{Success: true, Method: domain.DeliveryManual, Fallback: true})
	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, TopicNotificationDispatched, pub.sent[0].topic)
	assert.Empty(t, pub.sent[0].event.CorrelationID)

	var data NotificationDispatchedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, NotificationDispatchedData{OrderID: "o-1", Method: "manual", Fallback: true}, data)
}

func TestPublish_Error(t *testing.T) {
	p := newTestProducer(&fakePublisher{err: errors.New("broker unreachable")})

	err := p.PublishNotificationDispatched(context.Background(), "o-1", domain.DispatchResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish notification.dispatched event")
}

func TestNopPublisherSatisfiesPublisher(t *testing.T) {
	p := newTestProducer(pkgkafka.NewNopPublisher(slog.New(slog.NewTextHandler(io.Discard, nil))))
	assert.NoError(t, p.PublishNotificationDispatched(context.Background(), "o-1", domain.DispatchResult{}))
}
