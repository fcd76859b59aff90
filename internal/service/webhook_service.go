// internal/service/webhook_service.go
package service

import (
	"fmt"
	"log"
	"time"

	"github.com/mailtrace/mailtrace-backend/internal/model"
	"github.com/mailtrace/mailtrace-backend/internal/provider"
	"github.com/mailtrace/mailtrace-backend/internal/repository"
)

// WebhookProcessor reconciles provider webhook events against captured
// emails.
type WebhookProcessor struct {
	EmailRepo repository.EmailRepositoryInterface
	EventRepo repository.EventRepositoryInterface
}

// Process appends one Event per normalized webhook event that matches a
// captured email and advances the email's status. Events without a message id
// or without a matching email are skipped silently; zero created events is a
// valid outcome. A failure on one event never aborts the rest; already
// committed events stay committed.
func (p *WebhookProcessor) Process(adapter provider.Adapter, payload map[string]interface{}) ([]*model.Event, error) {
	created := []*model.Event{}
	providerName := adapter.Name()

	events := adapter.NormalizeEvents(payload)
	for _, evt := range events {
		if evt.MessageID == "" {
			continue
		}

		email, err := p.EmailRepo.GetByMessageID(evt.MessageID)
		if err != nil {
			return created, fmt.Errorf("lookup failed for message %s: %w", evt.MessageID, err)
		}
		if email == nil {
			continue
		}

		record := &model.Event{
			EmailID:    email.ID,
			EventType:  evt.EventType,
			Provider:   &providerName,
			Payload:    model.JSONMap(evt.Payload),
			OccurredAt: evt.OccurredAt,
		}
		if err := p.EventRepo.Create(record); err != nil {
			log.Println("⚠️ failed to append event for email", email.ID, ":", err)
			continue
		}
		created = append(created, record)

		p.advanceStatus(email, evt.EventType)
	}

	log.Printf("processed %d of %d webhook event(s) from %s", len(created), len(events), providerName)
	return created, nil
}

// advanceStatus adopts the event type as the email status when it names one.
// The last arriving event wins; nothing enforces forward-only progression.
func (p *WebhookProcessor) advanceStatus(email *model.Email, eventType string) {
	if !model.IsValidStatus(eventType) {
		return // opened/clicked are events, not statuses
	}

	var deliveredAt *time.Time
	if eventType == model.StatusDelivered {
		now := time.Now()
		deliveredAt = &now
	}

	if err := p.EmailRepo.UpdateStatus(email.ID, eventType, deliveredAt); err != nil {
		log.Println("⚠️ failed to update status for email", email.ID, ":", err)
	}
}
