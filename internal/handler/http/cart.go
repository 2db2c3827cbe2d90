package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/internal/service"
	"github.com/luxemarket/storefront/pkg/httputil"
	"github.com/luxemarket/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for the session cart.
type CartHandler struct {
	service  *service.CartService
	sessions *SessionManager
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, sessions *SessionManager, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service:  svc,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, cart *domain.Cart, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), sessionIDFromContext(r.Context()))
	h.respond(w, r, cart, err)
}

// AddItem handles POST /api/v1/cart/lines
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), sessionIDFromContext(r.Context()), req.ProductID)
	h.respond(w, r, cart, err)
}

// UpdateQuantity handles PUT /api/v1/cart/lines/{productId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateQuantityInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), sessionIDFromContext(r.Context()), chi.URLParam(r, "productId"), *req.Quantity)
	h.respond(w, r, cart, err)
}

// RemoveItem handles DELETE /api/v1/cart/lines/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveItem(r.Context(), sessionIDFromContext(r.Context()), chi.URLParam(r, "productId"))
	h.respond(w, r, cart, err)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Clear(r.Context(), sessionIDFromContext(r.Context()))
	h.respond(w, r, cart, err)
}

// OpenDrawer handles POST /api/v1/cart/drawer/open
func (h *CartHandler) OpenDrawer(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.OpenDrawer(r.Context(), sessionIDFromContext(r.Context()))
	h.respond(w, r, cart, err)
}

// CloseDrawer handles POST /api/v1/cart/drawer/close
func (h *CartHandler) CloseDrawer(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.CloseDrawer(r.Context(), sessionIDFromContext(r.Context()))
	h.respond(w, r, cart, err)
}

// EndSession handles DELETE /api/v1/session: the cart container is discarded
// and the cookie expired.
func (h *CartHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.EndSession(r.Context(), sessionIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := h.sessions.End(w, r); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
