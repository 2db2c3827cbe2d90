package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the persisted payment choice.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentWhatsApp       PaymentMethod = "whatsapp"
)

// PaymentMethodFor maps the checkout form option ("cod" or "whatsapp") to the
// persisted value.
func PaymentMethodFor(option string) (PaymentMethod, error) {
	switch option {
	case "cod":
		return PaymentCashOnDelivery, nil
	case "whatsapp":
		return PaymentWhatsApp, nil
	default:
		return "", fmt.Errorf("unknown payment option %q", option)
	}
}

// DisplayName is the label used in notifications. Anything other than cash on
// delivery reads as a WhatsApp order.
func (m PaymentMethod) DisplayName() string {
	if m == PaymentCashOnDelivery {
		return "Cash on Delivery"
	}
	return "WhatsApp Order"
}

// OrderStatus is the fulfilment status. The storefront only creates pending
// orders.
type OrderStatus string

const OrderStatusPending OrderStatus = "pending"

// Customer holds the checkout form contact fields.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Order is a persisted checkout. It is never mutated by the storefront.
type Order struct {
	ID            string          `json:"id"`
	Customer      Customer        `json:"customer"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        OrderStatus     `json:"status"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderItem snapshots one cart line. Name is carried for notifications and
// reads but is not stored on the item row.
type OrderItem struct {
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewOrderFromCart builds a pending order with one item per cart line, using
// the line prices as the unit price snapshot.
func NewOrderFromCart(id string, customer Customer, method PaymentMethod, cart *Cart, now time.Time) *Order {
	items := make([]OrderItem, len(cart.Lines))
	for i, l := range cart.Lines {
		items[i] = OrderItem{
			OrderID:   id,
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
		}
	}
	return &Order{
		ID:            id,
		Customer:      customer,
		TotalAmount:   cart.Total(),
		PaymentMethod: method,
		Status:        OrderStatusPending,
		Items:         items,
		CreatedAt:     now,
	}
}
