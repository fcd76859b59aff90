// internal/service/email_service.go
package service

import (
	"fmt"
	"log"

	"github.com/mailtrace/mailtrace-backend/internal/model"
	"github.com/mailtrace/mailtrace-backend/internal/queue"
	"github.com/mailtrace/mailtrace-backend/internal/repository"
)

// EmailService backs the read/mutation query boundary over captured emails.
type EmailService struct {
	EmailRepo      repository.EmailRepositoryInterface
	AttachmentRepo repository.AttachmentRepositoryInterface
	EventRepo      repository.EventRepositoryInterface
	Queue          queue.Queue
	ResendTopic    string
}

// EmailDetails is one email with its events and attachments.
type EmailDetails struct {
	Email       *model.Email        `json:"email"`
	Events      []*model.Event      `json:"events"`
	Attachments []*model.Attachment `json:"attachments"`
}

// ListEmails fetches emails with pagination. Archived rows are excluded
// unless the filter asks for them.
func (s *EmailService) ListEmails(page, pageSize int, filter repository.ListFilter) ([]model.Email, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 25
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.EmailRepo.ListEmails(offset, pageSize, filter)
	if err != nil {
		return nil, nil, err
	}

	emails := make([]model.Email, len(ptrs))
	for i, e := range ptrs {
		emails[i] = *e
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return emails, pagination, nil
}

// GetEmailDetails fetches an email with its events and attachments.
func (s *EmailService) GetEmailDetails(id int64) (*EmailDetails, error) {
	email, err := s.EmailRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	events, err := s.EventRepo.ListByEmail(id)
	if err != nil {
		log.Println("⚠️ failed to load events for email", id, ":", err)
		events = []*model.Event{}
	}

	attachments, err := s.AttachmentRepo.ListByEmail(id)
	if err != nil {
		log.Println("⚠️ failed to load attachments for email", id, ":", err)
		attachments = []*model.Attachment{}
	}

	return &EmailDetails{Email: email, Events: events, Attachments: attachments}, nil
}

// ResolveAttachmentPayload returns the payload bytes for an attachment of the
// given email, borrowing a sibling's payload by content hash when this row
// stores none.
func (s *EmailService) ResolveAttachmentPayload(emailID, attachmentID int64) (*model.Attachment, []byte, error) {
	att, err := s.AttachmentRepo.GetByID(attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if att == nil || att.EmailID != emailID {
		return nil, nil, fmt.Errorf("attachment not found")
	}

	payload, err := s.AttachmentRepo.ResolvePayload(att)
	if err != nil {
		return nil, nil, err
	}
	return att, payload, nil
}

// Archive soft-deletes an email; it disappears from default listings but
// keeps its history.
func (s *EmailService) Archive(id int64) error {
	if _, err := s.EmailRepo.GetByID(id); err != nil {
		return err
	}
	return s.EmailRepo.Archive(id)
}

func (s *EmailService) Unarchive(id int64) error {
	if _, err := s.EmailRepo.GetByID(id); err != nil {
		return err
	}
	return s.EmailRepo.Unarchive(id)
}

// Delete removes an email with its attachments and events.
func (s *EmailService) Delete(id int64) error {
	if _, err := s.EmailRepo.GetByID(id); err != nil {
		return err
	}
	return s.EmailRepo.Delete(id)
}

// Resend queues the stored email for another delivery. The worker rebuilds
// the message from the stored record and sends it through the interception
// hook, so the resend is captured like any other send.
func (s *EmailService) Resend(id int64) error {
	email, err := s.EmailRepo.GetByID(id)
	if err != nil {
		return err
	}
	if email.Mailer == "" || email.Action == "" {
		return fmt.Errorf("unable to resend: missing mailer information")
	}

	topic := s.ResendTopic
	if topic == "" {
		topic = "email_resends"
	}
	if err := s.Queue.Publish(topic, email.ID); err != nil {
		return fmt.Errorf("failed to queue resend: %w", err)
	}
	log.Println("📤 queued resend for email", email.ID)
	return nil
}
