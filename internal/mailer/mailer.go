// Package mailer sends transactional email for the storefront. Delivery
// uses SMTP via gomail; when no SMTP host is configured the mailer is
// disabled and sends become no-ops so the rest of the system keeps
// working in environments without a mail server.
package mailer

import (
	"fmt"
	"log"
	"strings"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/iliyamo/online-storefront/internal/config"
	"github.com/iliyamo/online-storefront/internal/queue"
)

const (
	sendAttempts = 3
	sendBackoff  = 2 * time.Second
)

// Mailer wraps a gomail dialer with the storefront's retry policy.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New builds a Mailer from the SMTP settings in cfg. It returns nil when
// SMTPHost is empty, which callers treat as "email disabled".
func New(cfg config.Config) *Mailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:   from,
	}
}

// SendOrderConfirmation emails the customer a summary of their order. The
// send is retried a fixed number of times with a fixed pause; the last
// error is returned when every attempt fails.
func (m *Mailer) SendOrderConfirmation(ev queue.OrderPlacedEvent) error {
	if m == nil {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", ev.CustomerEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Order #%d confirmed", ev.OrderID))
	msg.SetBody("text/plain", OrderConfirmationBody(ev))

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if lastErr = m.dialer.DialAndSend(msg); lastErr == nil {
			return nil
		}
		log.Printf("mailer: send order %d attempt %d/%d failed: %v", ev.OrderID, attempt, sendAttempts, lastErr)
		if attempt < sendAttempts {
			time.Sleep(sendBackoff)
		}
	}
	return lastErr
}

// OrderConfirmationBody renders the plain-text body of the confirmation
// email.
func OrderConfirmationBody(ev queue.OrderPlacedEvent) string {
	var b strings.Builder
	name := ev.CustomerName
	if name == "" {
		name = "customer"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Thanks for your order #%d placed at %s.\n\n", ev.OrderID, ev.PlacedAt)
	for _, it := range ev.Items {
		fmt.Fprintf(&b, "  %d x %s @ %s\n", it.Quantity, it.ProductName, formatCents(uint64(it.UnitPriceCents)))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", formatCents(ev.TotalCents))
	b.WriteString("\nWe will let you know when it ships.\n")
	return b.String()
}

func formatCents(cents uint64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
