// Package notify sends buyer-facing order confirmations. Delivery is best
// effort: a failed send is logged and never fails the checkout.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailNotifier struct {
	client *sendgrid.Client
	sender string
}

// NewEmailNotifier returns nil when no API key is configured, which
// disables notifications entirely.
func NewEmailNotifier(apiKey, sender string) *EmailNotifier {
	if apiKey == "" {
		return nil
	}
	return &EmailNotifier{
		client: sendgrid.NewSendClient(apiKey),
		sender: sender,
	}
}

func (n *EmailNotifier) OrderPlaced(ctx context.Context, order *domain.Order) {
	subject := fmt.Sprintf("Order confirmed — %s", order.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Your order to %s has been placed and is pending approval.</p>", order.VendorEmail)
	b.WriteString("<ul>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<li>%d %s × %s — $%.2f</li>",
			item.Quantity, item.UnitMeasure, item.ProductName, item.Price*float64(item.Quantity))
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p><strong>Total: $%.2f</strong></p>", order.TotalAmount)

	from := mail.NewEmail("RawConnect", n.sender)
	to := mail.NewEmail("", order.BuyerEmail)
	message := mail.NewSingleEmail(from, subject, to, "", b.String())

	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		log.Printf("failed to send order confirmation for %s: %v", order.ID, err)
		return
	}
	if resp.StatusCode >= 400 {
		log.Printf("order confirmation for %s rejected with status %d", order.ID, resp.StatusCode)
	}
}
