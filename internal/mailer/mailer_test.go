package mailer

import (
	"strings"
	"testing"

	"github.com/iliyamo/online-storefront/internal/config"
	"github.com/iliyamo/online-storefront/internal/queue"
)

func TestNewDisabledWithoutHost(t *testing.T) {
	if m := New(config.Config{}); m != nil {
		t.Fatal("New with empty SMTPHost should return nil")
	}
	// A nil mailer must be safe to call.
	var m *Mailer
	if err := m.SendOrderConfirmation(queue.OrderPlacedEvent{}); err != nil {
		t.Fatalf("nil mailer send = %v, want nil", err)
	}
}

func TestOrderConfirmationBody(t *testing.T) {
	body := OrderConfirmationBody(queue.OrderPlacedEvent{
		OrderID:      17,
		CustomerName: "Ada",
		PlacedAt:     "2026-09-01T12:00:00Z",
		TotalCents:   4597,
		Items: []queue.OrderItemEvent{
			{ProductID: 1, ProductName: "Mechanical Keyboard", Quantity: 1, UnitPriceCents: 3999},
			{ProductID: 2, ProductName: "USB Cable", Quantity: 2, UnitPriceCents: 299},
		},
	})
	for _, want := range []string{
		"Hi Ada,",
		"order #17",
		"1 x Mechanical Keyboard @ $39.99",
		"2 x USB Cable @ $2.99",
		"Total: $45.97",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestOrderConfirmationBodyFallbackName(t *testing.T) {
	body := OrderConfirmationBody(queue.OrderPlacedEvent{OrderID: 1})
	if !strings.Contains(body, "Hi customer,") {
		t.Errorf("body should address unnamed recipients as customer:\n%s", body)
	}
}
