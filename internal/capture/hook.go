// internal/capture/hook.go
package capture

import (
	"context"
	"log"

	"github.com/mailtrace/mailtrace-backend/internal/message"
	"github.com/mailtrace/mailtrace-backend/internal/model"
)

// Delivery describes one outbound message at the moment the transport
// actually executes: the final composed message plus its send context.
type Delivery struct {
	Message          *message.Message
	Mailer           string
	Action           string
	Params           map[string]interface{}
	DeliveryMethod   string
	DeliverySettings map[string]interface{}
	DeliveryType     string // "sync" or "queued"
	InitialStatus    string // defaults to "sent"
}

// Capturer records a delivery. Implemented by service.CaptureService.
type Capturer interface {
	Capture(ctx context.Context, d Delivery) (*model.Email, error)
}

// SendFunc performs the actual transport call for a delivery.
type SendFunc func(ctx context.Context, d Delivery) error

// Hook is the process-wide interception point around "deliver this message
// now". It is applied where the transport executes, not where a deferred
// send is scheduled, so each delivery is captured exactly once.
type Hook struct {
	Capturer Capturer
}

func NewHook(c Capturer) *Hook {
	return &Hook{Capturer: c}
}

// Wrap decorates a send function with capture. The capture runs first, on the
// message as actually constructed; a capture failure is logged and swallowed
// and never blocks or fails the send.
func (h *Hook) Wrap(send SendFunc) SendFunc {
	return func(ctx context.Context, d Delivery) error {
		h.capture(ctx, d)
		return send(ctx, d)
	}
}

func (h *Hook) capture(ctx context.Context, d Delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("⚠️ email capture panicked:", r)
		}
	}()

	if _, err := h.Capturer.Capture(ctx, d); err != nil {
		log.Println("⚠️ failed to capture email:", err)
	}
}
