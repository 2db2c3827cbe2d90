package domain

import (
	"github.com/shopspring/decimal"
)

// Delivery methods reported by the notification dispatcher.
const (
	DeliveryAutomatic = "automatic"
	DeliveryManual    = "manual"
)

// NotificationItem is one line of an order notification.
type NotificationItem struct {
	Name     string          `json:"name" validate:"required"`
	Quantity int             `json:"quantity" validate:"gte=1"`
	Price    decimal.Decimal `json:"price"`
}

// OrderNotification is the payload handed to the notification dispatcher,
// in process or through POST /api/notify-whatsapp.
type OrderNotification struct {
	OrderID       string             `json:"orderId" validate:"required"`
	CustomerName  string             `json:"customerName" validate:"required"`
	CustomerEmail string             `json:"customerEmail" validate:"required"`
	CustomerPhone string             `json:"customerPhone" validate:"required"`
	Address       string             `json:"address" validate:"required"`
	Items         []NotificationItem `json:"items" validate:"required,min=1,dive"`
	Total         decimal.Decimal    `json:"total"`
	PaymentMethod PaymentMethod      `json:"paymentMethod" validate:"required"`
}

// NotificationFor builds the notification payload for order.
func NotificationFor(order *Order) OrderNotification {
	items := make([]NotificationItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = NotificationItem{Name: it.Name, Quantity: it.Quantity, Price: it.UnitPrice}
	}
	return OrderNotification{
		OrderID:       order.ID,
		CustomerName:  order.Customer.Name,
		CustomerEmail: order.Customer.Email,
		CustomerPhone: order.Customer.Phone,
		Address:       order.Customer.Address,
		Items:         items,
		Total:         order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
	}
}

// DispatchResult is the dispatcher outcome. Success is always true: delivery
// problems downgrade to the manual method instead of failing.
type DispatchResult struct {
	Success     bool   `json:"success"`
	Method      string `json:"method"`
	Fallback    bool   `json:"fallback,omitempty"`
	WhatsAppURL string `json:"whatsappUrl,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Manual reports whether a human has to complete delivery.
func (r DispatchResult) Manual() bool {
	return r.Method == DeliveryManual
}

// HostSignal is an instruction for the page embedding the storefront,
// forwarded by the frontend with window.parent.postMessage.
type HostSignal struct {
	Type string         `json:"type"`
	Data HostSignalData `json:"data"`
}

// HostSignalData carries the signal arguments.
type HostSignalData struct {
	URL string `json:"url"`
}

// SignalOpenExternalURL asks the host frame to open a URL.
const SignalOpenExternalURL = "OPEN_EXTERNAL_URL"

// OpenExternalURLSignal builds an OPEN_EXTERNAL_URL signal.
func OpenExternalURLSignal(url string) HostSignal {
	return HostSignal{Type: SignalOpenExternalURL, Data: HostSignalData{URL: url}}
}
