package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/internal/repository"
	apperrors "github.com/luxemarket/storefront/pkg/errors"
	"github.com/luxemarket/storefront/pkg/tracing"
)

var ordersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_orders_total",
		Help: "Checkout attempts by payment method and outcome.",
	},
	[]string{"payment_method", "outcome"},
)

// CheckoutInput is the checkout form. Only presence is enforced; email and
// phone formats are left to the shopper.
type CheckoutInput struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	Address       string `json:"address" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cod whatsapp"`
}

// ExternalURLOpener asks the environment hosting the storefront to open a
// URL for the shopper.
type ExternalURLOpener interface {
	OpenExternalURL(ctx context.Context, url string) error
}

// Notifier delivers order notifications. Dispatch never fails.
type Notifier interface {
	Dispatch(ctx context.Context, n domain.OrderNotification) domain.DispatchResult
	ManualLink(n domain.OrderNotification) string
}

// OrderEvents publishes order lifecycle events.
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

// SessionCart is the cart access checkout needs.
type SessionCart interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	CompleteCheckout(ctx context.Context, sessionID string, ordered []domain.OrderItem) (*domain.Cart, error)
}

// CheckoutResult reports what PlaceOrder did. OrderPlaced is false only when
// the cart was empty.
type CheckoutResult struct {
	OrderPlaced  bool
	Order        *domain.Order
	Notification domain.DispatchResult
	ManualURL    string
}

// CheckoutService implements the order submission workflow.
type CheckoutService struct {
	carts    SessionCart
	orders   repository.OrderRepository
	notifier Notifier
	events   OrderEvents
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts SessionCart,
	orders repository.OrderRepository,
	notifier Notifier,
	events OrderEvents,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		orders:   orders,
		notifier: notifier,
		events:   events,
		logger:   logger,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder turns the session cart and the checkout form into a persisted
// order, notifies the store owner and empties the cart.
//
// An empty cart is not an error: nothing is written or sent and the result
// has OrderPlaced false. A persistence failure leaves the cart as it was.
// Notification problems never fail the order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionID string, input CheckoutInput, opener ExternalURLOpener) (*CheckoutResult, error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.PlaceOrder")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		s.logger.InfoContext(ctx, "checkout skipped, cart is empty")
		return &CheckoutResult{OrderPlaced: false}, nil
	}

	method, err := domain.PaymentMethodFor(input.PaymentMethod)
	if err != nil {
		err = apperrors.InvalidInput(err.Error())
		return nil, err
	}

	customer := domain.Customer{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Address: input.Address,
	}
	order := domain.NewOrderFromCart(s.newID(), customer, method, cart, s.now())
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.payment_method", string(method)),
		attribute.Int("order.items", len(order.Items)),
	)

	if err = s.orders.Create(ctx, order); err != nil {
		ordersTotal.WithLabelValues(string(method), "failed").Inc()
		s.logger.ErrorContext(ctx, "failed to persist order",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		err = apperrors.New("ORDER_FAILED", "failed to place order, please try again", http.StatusInternalServerError, err)
		return nil, err
	}
	ordersTotal.WithLabelValues(string(method), "placed").Inc()

	if perr := s.events.PublishOrderPlaced(ctx, order); perr != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", perr.Error()),
		)
	}

	payload := domain.NotificationFor(order)
	result := &CheckoutResult{
		OrderPlaced:  true,
		Order:        order,
		Notification: s.notifier.Dispatch(ctx, payload),
	}

	if result.Notification.Manual() || method == domain.PaymentWhatsApp {
		result.ManualURL = s.notifier.ManualLink(payload)
		if opener == nil {
			s.logger.WarnContext(ctx, "no url opener for manual notification link", slog.String("order_id", order.ID))
		} else if oerr := opener.OpenExternalURL(ctx, result.ManualURL); oerr != nil {
			s.logger.WarnContext(ctx, "failed to open manual notification link",
				slog.String("order_id", order.ID),
				slog.String("error", oerr.Error()),
			)
		}
	}

	if _, cerr := s.carts.CompleteCheckout(ctx, sessionID, order.Items); cerr != nil {
		s.logger.ErrorContext(ctx, "order placed but cart was not cleared",
			slog.String("order_id", order.ID),
			slog.String("error", cerr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("payment_method", string(method)),
		slog.String("total", order.TotalAmount.StringFixed(2)),
		slog.String("notification_method", result.Notification.Method),
		slog.Bool("notification_fallback", result.Notification.Fallback),
	)

	return result, nil
}

// GetOrder retrieves a placed order with its items.
func (s *CheckoutService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}
