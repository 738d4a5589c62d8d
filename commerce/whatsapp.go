package commerce

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultContactPhone is the store's WhatsApp number with country code
const DefaultContactPhone = "919730593982"

// ConfirmationMessage is the text a customer sends to confirm an order
func ConfirmationMessage(order Order) string {
	items := make([]string, len(order.Items))
	for i, line := range order.Items {
		items[i] = fmt.Sprintf("%s x %d", line.Product.Name, line.Quantity)
	}
	return fmt.Sprintf("Namaste! I just placed an order on Radhe Krishna Ayurveda.\nOrder ID: %s\nItems: %s\nTotal: ₹%d\nPayment: %s. Please confirm.",
		order.ID, strings.Join(items, ", "), order.TotalAmount, order.PaymentMethod.Label())
}

// ProductEnquiryMessage is the text for ordering a single product over chat
func ProductEnquiryMessage(p Product) string {
	return fmt.Sprintf("Namaste! I want to order \"%s\" for ₹%d. Please share details.", p.Name, p.Price)
}

// WhatsAppLink builds a wa.me link that opens a chat prefilled with text
func WhatsAppLink(phone, text string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + phone + "?text=" + escaped
}
