package notifier

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/pkg/tracing"
)

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_notifications_total",
		Help: "Order notifications by delivery method and whether automatic delivery fell back to manual.",
	},
	[]string{"method", "fallback"},
)

const noGatewayMessage = "No CallMeBot API key configured. Using manual WhatsApp redirect."

// DispatchEvents receives the outcome of every dispatch.
type DispatchEvents interface {
	PublishNotificationDispatched(ctx context.Context, orderID string, result domain.DispatchResult) error
}

// Config holds the store owner's number and the deep-link base.
type Config struct {
	Phone        string
	DeepLinkBase string
}

// Dispatcher turns an order into a store-owner message and delivers it
// automatically when a gateway sender is configured. It never fails: every
// problem is reported as a manual fallback.
type Dispatcher struct {
	sender Sender
	cfg    Config
	events DispatchEvents
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher. sender may be nil, in which case every
// order is delivered manually. events may be nil.
func NewDispatcher(sender Sender, cfg Config, events DispatchEvents, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		cfg:    cfg,
		events: events,
		logger: logger,
	}
}

// ManualLink returns the chat deep link pre-filled with the manual message.
func (d *Dispatcher) ManualLink(n domain.OrderNotification) string {
	return DeepLink(d.cfg.DeepLinkBase, d.cfg.Phone, FormatManualMessage(n))
}

// Dispatch delivers the order notification.
func (d *Dispatcher) Dispatch(ctx context.Context, n domain.OrderNotification) domain.DispatchResult {
	ctx, span := tracing.StartSpan(ctx, "notifier.Dispatch")
	defer span.End()

	var result domain.DispatchResult
	if d.sender == nil {
		result = domain.DispatchResult{
			Success:     true,
			Method:      domain.DeliveryManual,
			WhatsAppURL: d.ManualLink(n),
			Message:     noGatewayMessage,
		}
	} else {
		result = d.sendAutomatic(ctx, n)
	}

	d.record(ctx, n.OrderID, result)
	return result
}

func (d *Dispatcher) sendAutomatic(ctx context.Context, n domain.OrderNotification) domain.DispatchResult {
	if err := d.sender.Send(ctx, d.cfg.Phone, FormatOrderMessage(n)); err != nil {
		d.logger.WarnContext(ctx, "automatic order notification failed, falling back to manual",
			slog.String("order_id", n.OrderID),
			slog.String("sender", d.sender.Name()),
			slog.String("error", err.Error()),
		)
		return domain.DispatchResult{
			Success:     true,
			Method:      domain.DeliveryManual,
			Fallback:    true,
			WhatsAppURL: d.ManualLink(n),
			Error:       "Failed to send WhatsApp notification",
		}
	}

	d.logger.InfoContext(ctx, "order notification sent",
		slog.String("order_id", n.OrderID),
		slog.String("sender", d.sender.Name()),
	)
	return domain.DispatchResult{Success: true, Method: domain.DeliveryAutomatic}
}

// InvalidPayload is the result for a request that could not be decoded.
// Nothing is sent and no link is offered.
func (d *Dispatcher) InvalidPayload() domain.DispatchResult {
	result := domain.DispatchResult{
		Success: true,
		Method:  domain.DeliveryManual,
		Error:   "invalid notification payload",
	}
	notificationsTotal.WithLabelValues(result.Method, strconv.FormatBool(result.Fallback)).Inc()
	return result
}

func (d *Dispatcher) record(ctx context.Context, orderID string, result domain.DispatchResult) {
	notificationsTotal.WithLabelValues(result.Method, strconv.FormatBool(result.Fallback)).Inc()

	if d.events == nil {
		return
	}
	if err := d.events.PublishNotificationDispatched(ctx, orderID, result); err != nil {
		d.logger.ErrorContext(ctx, "failed to publish notification.dispatched event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}
