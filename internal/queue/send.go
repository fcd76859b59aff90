package queue

import (
	"context"
	"log"
	"time"

	"github.com/mailtrace/mailtrace-backend/internal/capture"
	"github.com/mailtrace/mailtrace-backend/internal/message"
	"github.com/mailtrace/mailtrace-backend/internal/repository"
)

// StartSendSubscriber consumes deferred send jobs. The email was already
// captured at enqueue time, so the stored record is rebuilt and handed to
// the bare transport, then marked sent. Unlike resends, no new email row is
// created.
func StartSendSubscriber(q Queue, topic string, emailRepo repository.EmailRepositoryInterface, send capture.SendFunc) {
	err := q.Subscribe(topic, func(payload any) error {
		emailID, ok := payload.(int64)
		if !ok {
			log.Printf("⚠️ invalid send payload type %T, expected int64", payload)
			return nil
		}

		log.Println("📩 processing deferred send for email", emailID)

		email, err := emailRepo.GetByID(emailID)
		if err != nil {
			log.Println("⚠️ failed to fetch email for send:", err)
			return err
		}

		msg, err := message.Parse([]byte(email.RawMessage()))
		if err != nil {
			log.Println("⚠️ failed to rebuild message for send:", err)
			return nil
		}

		settings := map[string]interface{}{}
		for k, v := range email.DeliverySettings {
			settings[k] = v
		}

		delivery := capture.Delivery{
			Message:          msg,
			Mailer:           email.Mailer,
			Action:           email.Action,
			Params:           email.MailerParams,
			DeliveryMethod:   email.DeliveryMethod,
			DeliverySettings: settings,
			DeliveryType:     email.DeliveryType,
		}

		if err := send(context.Background(), delivery); err != nil {
			log.Println("⚠️ send transport failed:", err)
			return err
		}

		if err := emailRepo.MarkSent(emailID, time.Now()); err != nil {
			log.Println("⚠️ failed to mark email sent:", err)
		}

		log.Println("✅ deferred send processed for email", emailID)
		return nil
	})

	if err != nil {
		log.Println("⚠️ failed to start subscriber for", topic, ":", err)
	}
}
