package http

import (
	"time"

	"github.com/luxemarket/storefront/internal/domain"
	"github.com/luxemarket/storefront/internal/service"
)

// Amounts are rendered as two-decimal strings so clients never see float
// rounding.

type productResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           string    `json:"price"`
	OriginalPrice   *string   `json:"original_price,omitempty"`
	ImageURL        string    `json:"image_url"`
	Category        string    `json:"category"`
	IsPremium       bool      `json:"is_premium"`
	DiscountPercent *int      `json:"discount_percent,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toProductResponse(p *domain.Product) productResponse {
	resp := productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		IsPremium:   p.IsPremium(),
		CreatedAt:   p.CreatedAt,
	}
	if p.OriginalPrice != nil {
		s := p.OriginalPrice.StringFixed(2)
		resp.OriginalPrice = &s
	}
	if pct, ok := p.DiscountPercent(); ok {
		resp.DiscountPercent = &pct
	}
	return resp
}

func toProductResponses(products []domain.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i])
	}
	return out
}

type storefrontResponse struct {
	Featured *productResponse  `json:"featured"`
	Products []productResponse `json:"products"`
}

func toStorefrontResponse(sf *service.Storefront) storefrontResponse {
	resp := storefrontResponse{Products: toProductResponses(sf.Products)}
	if sf.Featured != nil {
		f := toProductResponse(sf.Featured)
		resp.Featured = &f
	}
	return resp
}

type cartLineResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type cartResponse struct {
	Lines      []cartLineResponse `json:"lines"`
	DrawerOpen bool               `json:"drawer_open"`
	Total      string             `json:"total"`
	Count      int                `json:"count"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func toCartResponse(c *domain.Cart) cartResponse {
	lines := make([]cartLineResponse, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price.StringFixed(2),
			ImageURL:  l.ImageURL,
			Quantity:  l.Quantity,
			LineTotal: l.Subtotal().StringFixed(2),
		}
	}
	return cartResponse{
		Lines:      lines,
		DrawerOpen: c.DrawerOpen,
		Total:      c.Total().StringFixed(2),
		Count:      c.Count(),
		UpdatedAt:  c.UpdatedAt,
	}
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	CustomerPhone   string              `json:"customer_phone"`
	ShippingAddress string              `json:"shipping_address"`
	TotalAmount     string              `json:"total_amount"`
	PaymentMethod   string              `json:"payment_method"`
	Status          string              `json:"status"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		}
	}
	return orderResponse{
		ID:              o.ID,
		CustomerName:    o.Customer.Name,
		CustomerEmail:   o.Customer.Email,
		CustomerPhone:   o.Customer.Phone,
		ShippingAddress: o.Customer.Address,
		TotalAmount:     o.TotalAmount.StringFixed(2),
		PaymentMethod:   string(o.PaymentMethod),
		Status:          string(o.Status),
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}

type notificationSummary struct {
	Method   string `json:"method"`
	Fallback bool   `json:"fallback"`
}

type checkoutResponse struct {
	OrderPlaced  bool                 `json:"order_placed"`
	OrderID      string               `json:"order_id,omitempty"`
	Total        string               `json:"total,omitempty"`
	Notification *notificationSummary `json:"notification,omitempty"`
	Signals      []domain.HostSignal  `json:"signals"`
}
