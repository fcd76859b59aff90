package queue

import (
	"context"
	"log"

	"github.com/mailtrace/mailtrace-backend/internal/capture"
)

// LogSender is a stand-in transport used when no real SMTP relay is
// configured. It logs the delivery and reports success.
func LogSender(ctx context.Context, d capture.Delivery) error {
	to := []string{}
	for _, addr := range d.Message.To {
		to = append(to, addr.Address)
	}
	log.Printf("📨 [send] %s via %s to %v: %q", d.Mailer, d.DeliveryMethod, to, d.Message.Subject)
	return nil
}
