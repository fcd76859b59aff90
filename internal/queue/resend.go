package queue

import (
	"context"
	"fmt"
	"log"

	"github.com/mailtrace/mailtrace-backend/internal/capture"
	"github.com/mailtrace/mailtrace-backend/internal/message"
	"github.com/mailtrace/mailtrace-backend/internal/model"
	"github.com/mailtrace/mailtrace-backend/internal/repository"
)

// StartResendSubscriber consumes resend jobs: the stored email is rebuilt
// into a message and handed to send, normally a hook-wrapped transport, so
// the resend is captured as a fresh email.
func StartResendSubscriber(q Queue, topic string, emailRepo repository.EmailRepositoryInterface, send capture.SendFunc) {
	err := q.Subscribe(topic, func(payload any) error {
		emailID, ok := payload.(int64)
		if !ok {
			log.Printf("⚠️ invalid resend payload type %T, expected int64", payload)
			return nil // no retry
		}

		log.Println("📩 processing queued resend for email", emailID)

		email, err := emailRepo.GetByID(emailID)
		if err != nil {
			log.Println("⚠️ failed to fetch email for resend:", err)
			return err
		}

		delivery, err := BuildResendDelivery(email)
		if err != nil {
			log.Println("⚠️ failed to rebuild message for resend:", err)
			return nil // rebuilding will not succeed on retry either
		}

		if err := send(context.Background(), *delivery); err != nil {
			log.Println("⚠️ resend transport failed:", err)
			return err // triggers retry
		}

		log.Println("✅ resend processed for email", emailID)
		return nil
	})

	if err != nil {
		log.Println("⚠️ failed to start subscriber for", topic, ":", err)
	}
}

// BuildResendDelivery reconstructs a delivery from a stored email record.
func BuildResendDelivery(email *model.Email) (*capture.Delivery, error) {
	msg, err := message.Parse([]byte(email.RawMessage()))
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild message: %w", err)
	}

	// The resend is a new delivery; the transport assigns a fresh message id.
	// Carrying the stored one over would collide with the unique index.
	msg.MessageID = ""
	delete(msg.Headers, "Message-Id")
	delete(msg.Headers, "Message-ID")

	settings := map[string]interface{}{}
	for k, v := range email.DeliverySettings {
		settings[k] = v
	}

	return &capture.Delivery{
		Message:          msg,
		Mailer:           email.Mailer,
		Action:           email.Action,
		Params:           email.MailerParams,
		DeliveryMethod:   email.DeliveryMethod,
		DeliverySettings: settings,
		DeliveryType:     "queued",
		InitialStatus:    model.StatusSent,
	}, nil
}
