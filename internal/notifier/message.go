package notifier

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/luxemarket/storefront/internal/domain"
)

const confirmationLine = "Please confirm this order. Thank you! 🙏"

// FormatOrderMessage renders the store-owner message for an order. Amounts
// are always printed with two decimals.
func FormatOrderMessage(n domain.OrderNotification) string {
	var b strings.Builder

	b.WriteString("🛍️ *New Order from AURA*\n\n")
	fmt.Fprintf(&b, "*Order ID:* %s\n\n", n.OrderID)

	b.WriteString("*Customer Details:*\n")
	fmt.Fprintf(&b, "Name: %s\n", n.CustomerName)
	fmt.Fprintf(&b, "Email: %s\n", n.CustomerEmail)
	fmt.Fprintf(&b, "Phone: %s\n\n", n.CustomerPhone)

	b.WriteString("*Shipping Address:*\n")
	b.WriteString(n.Address)
	b.WriteString("\n\n")

	b.WriteString("*Order Items:*\n")
	for i, item := range n.Items {
		if i > 0 {
			b.WriteByte('\n')
		}
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(&b, "• %s x%d - $%s", item.Name, item.Quantity, lineTotal.StringFixed(2))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "*Total Amount:* $%s\n\n", n.Total.StringFixed(2))
	fmt.Fprintf(&b, "*Payment Method:* %s", n.PaymentMethod.DisplayName())

	return b.String()
}

// FormatManualMessage is the message pre-filled into the chat deep link. It
// asks the store owner to confirm, since a human sends it.
func FormatManualMessage(n domain.OrderNotification) string {
	return FormatOrderMessage(n) + "\n\n" + confirmationLine
}

// DeepLink builds <base>/<digits>?text=<message>. Spaces are encoded as %20
// so chat clients do not show literal plus signs.
func DeepLink(base, phone, message string) string {
	return strings.TrimRight(base, "/") + "/" + digitsOnly(phone) + "?text=" + encodeComponent(message)
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func encodeQuery(v url.Values) string {
	return strings.ReplaceAll(v.Encode(), "+", "%20")
}

func digitsOnly(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// gatewayPhone keeps digits and a leading plus sign.
func gatewayPhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, phone)
}
