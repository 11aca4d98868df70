package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/shopspring/decimal"
)

// BuildOrderCreatedMessage builds the HTML alert sent to staff for a new
// order. adminBaseURL may be empty, in which case the link is omitted.
func BuildOrderCreatedMessage(e order.OrderCreated, adminBaseURL string) string {
	channel := "Online"
	if e.IsPOS {
		channel = "POS"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🛍 <b>New %s order</b> <code>%s</code>\n", channel, html.EscapeString(e.OrderCode))
	fmt.Fprintf(&b, "👤 %s (%s)\n", html.EscapeString(e.CustomerName), html.EscapeString(e.CustomerPhone))
	fmt.Fprintf(&b, "📦 %d item(s)\n", e.ItemCount)
	fmt.Fprintf(&b, "💵 <b>%s</b> via %s (%s)", formatAmount(e.Total), html.EscapeString(string(e.PaymentMethod)), html.EscapeString(string(e.PaymentStatus)))

	if adminBaseURL != "" {
		link := fmt.Sprintf("%s/admin/orders/%s", strings.TrimRight(adminBaseURL, "/"), e.OrderID)
		fmt.Fprintf(&b, "\n\n<a href=\"%s\">Open order</a>", html.EscapeString(link))
	}
	return b.String()
}

// formatAmount renders a USD amount with comma separators, e.g. $1,234.50
func formatAmount(d decimal.Decimal) string {
	str := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(str, ".")

	var result strings.Builder
	if d.IsNegative() {
		result.WriteString("-")
	}
	result.WriteString("$")

	remainder := len(intPart) % 3
	if remainder > 0 {
		result.WriteString(intPart[:remainder])
	}
	for i := remainder; i < len(intPart); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(intPart[i : i+3])
	}

	result.WriteString(".")
	result.WriteString(frac)
	return result.String()
}
