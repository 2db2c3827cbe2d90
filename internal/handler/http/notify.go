package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/pkg/httputil"
	"github.com/luxemarket/storefront/pkg/logger"
	"github.com/luxemarket/storefront/pkg/validator"
)

// Dispatcher is the notification dispatcher as seen by HTTP.
type Dispatcher interface {
	Dispatch(ctx context.Context, n domain.OrderNotification) domain.DispatchResult
	InvalidPayload() domain.DispatchResult
}

// NotifyHandler exposes the notification dispatcher at
// POST /api/notify-whatsapp. It always answers 200.
type NotifyHandler struct {
	dispatcher Dispatcher
}

// NewNotifyHandler creates a new notify HTTP handler.
func NewNotifyHandler(d Dispatcher) *NotifyHandler {
	return &NotifyHandler{dispatcher: d}
}

// Notify handles POST /api/notify-whatsapp. The response is the bare
// dispatch result, not the data envelope.
func (h *NotifyHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var payload domain.OrderNotification
	if err := validator.DecodeAndValidate(r, &payload); err != nil {
		logger.FromContext(r.Context()).WarnContext(r.Context(), "invalid notification payload",
			slog.String("error", err.Error()),
		)
		httputil.WriteJSON(w, http.StatusOK, h.dispatcher.InvalidPayload())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.dispatcher.Dispatch(r.Context(), payload))
}
