package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luxemarket/storefront/internal/service"
	"github.com/luxemarket/storefront/pkg/httputil"
	"github.com/luxemarket/storefront/pkg/validator"
)

// CheckoutHandler handles order submission and order lookup.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: logger}
}

// PlaceOrder handles POST /api/v1/checkout. An empty cart answers 200 with
// order_placed false; a placed order answers 201 with the signals the
// frontend must forward to its host frame.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	signals := newSignalCollector()
	res, err := h.service.PlaceOrder(r.Context(), sessionIDFromContext(r.Context()), req, signals)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if !res.OrderPlaced {
		httputil.WriteData(w, http.StatusOK, checkoutResponse{OrderPlaced: false, Signals: signals.signals})
		return
	}

	httputil.WriteData(w, http.StatusCreated, checkoutResponse{
		OrderPlaced: true,
		OrderID:     res.Order.ID,
		Total:       res.Order.TotalAmount.StringFixed(2),
		Notification: &notificationSummary{
			Method:   res.Notification.Method,
			Fallback: res.Notification.Fallback,
		},
		Signals: signals.signals,
	})
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, toOrderResponse(order))
}
