package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// premiumThreshold is the price above which a product is badged premium.
var premiumThreshold = decimal.NewFromInt(100)

// Product is a catalog entry. The storefront only reads products.
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	ImageURL      string           `json:"image_url"`
	Category      string           `json:"category"`
	CreatedAt     time.Time        `json:"created_at"`
}

// IsPremium reports whether the product is priced above 100.
func (p *Product) IsPremium() bool {
	return p.Price.GreaterThan(premiumThreshold)
}

// DiscountPercent returns the rounded markdown from the original price. ok is
// false when there is no original price or it does not exceed the price.
func (p *Product) DiscountPercent() (percent int, ok bool) {
	if p.OriginalPrice == nil || !p.OriginalPrice.GreaterThan(p.Price) {
		return 0, false
	}
	off := p.OriginalPrice.Sub(p.Price).Div(*p.OriginalPrice).Mul(decimal.NewFromInt(100)).Round(0)
	return int(off.IntPart()), true
}

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Category string
	Limit    int
	Offset   int
}
