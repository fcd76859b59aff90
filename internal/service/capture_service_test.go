package service_test

import (
	"context"
	"testing"

	"github.com/mailtrace/mailtrace-backend/internal/capture"
	"github.com/mailtrace/mailtrace-backend/internal/config"
	"github.com/mailtrace/mailtrace-backend/internal/message"
	"github.com/mailtrace/mailtrace-backend/internal/model"
	"github.com/mailtrace/mailtrace-backend/internal/service"
)

func textBody(s string) *message.Part {
	return &message.Part{ContentType: "text/plain", Body: s}
}

func testMessage() *message.Message {
	return &message.Message{
		MessageID: "abc123@mailer.example",
		Subject:   "Welcome!",
		From:      []message.Address{{Name: "Support", Address: "support@example.com"}},
		To:        []message.Address{{Address: "alice@example.com"}},
		Headers:   map[string]string{"Mime-Version": "1.0"},
		Body:      textBody("Hello Alice"),
	}
}

func newCaptureService(emailRepo *MockEmailRepo, attRepo *MockAttachmentRepo) *service.CaptureService {
	return &service.CaptureService{
		EmailRepo:      emailRepo,
		AttachmentRepo: attRepo,
		Attachments:    config.AttachmentConfig{Storage: config.StorageDatabase, MaxSize: 1024 * 1024},
		Environment:    "test",
		ProcessType:    "web",
	}
}

func TestCaptureRecordsEmail(t *testing.T) {
	emailRepo := NewMockEmailRepo()
	svc := newCaptureService(emailRepo, &MockAttachmentRepo{stored: map[string]bool{}})

	email, err := svc.Capture(context.Background(), capture.Delivery{
		Message:        testMessage(),
		Mailer:         "UserMailer",
		Action:         "welcome",
		DeliveryMethod: "smtp",
		DeliverySettings: map[string]interface{}{
			"address":  "smtp.mailpace.com",
			"port":     587,
			"password": "hunter2",
		},
		DeliveryType: "sync",
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	if email.ID == 0 {
		t.Error("expected email to be persisted with an ID")
	}
	if email.Status != "sent" {
		t.Errorf("expected default status sent, got %s", email.Status)
	}
	if email.SentAt == nil {
		t.Error("expected sent_at to be set for status sent")
	}
	if email.MessageID == nil || *email.MessageID != "abc123@mailer.example" {
		t.Errorf("unexpected message_id: %v", email.MessageID)
	}
	if email.FromAddress != "Support <support@example.com>" {
		t.Errorf("unexpected from: %s", email.FromAddress)
	}
	if len(email.ToAddresses) != 1 || email.ToAddresses[0] != "alice@example.com" {
		t.Errorf("unexpected to: %v", email.ToAddresses)
	}
	if email.Provider != "mailpace" {
		t.Errorf("expected provider sniffed from SMTP host, got %s", email.Provider)
	}
	if _, ok := email.DeliverySettings["password"]; ok {
		t.Error("password must not survive delivery settings sanitization")
	}
	if email.DeliverySettings["address"] != "smtp.mailpace.com" {
		t.Errorf("expected safe settings to survive, got %v", email.DeliverySettings)
	}
	if email.Environment != "test" || email.ProcessType != "web" {
		t.Errorf("unexpected process metadata: %s/%s", email.Environment, email.ProcessType)
	}
}

func TestCaptureInitialStatusQueued(t *testing.T) {
	emailRepo := NewMockEmailRepo()
	svc := newCaptureService(emailRepo, &MockAttachmentRepo{stored: map[string]bool{}})

	email, err := svc.Capture(context.Background(), capture.Delivery{
		Message:        testMessage(),
		Mailer:         "UserMailer",
		Action:         "welcome",
		DeliveryMethod: "test",
		DeliveryType:   "queued",
		InitialStatus:  model.StatusQueued,
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if email.Status != "queued" {
		t.Errorf("expected queued, got %s", email.Status)
	}
	if email.SentAt != nil {
		t.Error("sent_at must stay empty until the message is actually sent")
	}
}

func TestCaptureRejectsMissingRecipients(t *testing.T) {
	emailRepo := NewMockEmailRepo()
	svc := newCaptureService(emailRepo, &MockAttachmentRepo{stored: map[string]bool{}})

	msg := testMessage()
	msg.To = nil

	_, err := svc.Capture(context.Background(), capture.Delivery{
		Message:        msg,
		Mailer:         "UserMailer",
		Action:         "welcome",
		DeliveryMethod: "test",
	})
	if err == nil {
		t.Fatal("expected validation error for missing recipients")
	}
	if len(emailRepo.emails) != 0 {
		t.Error("nothing should be persisted when validation fails")
	}
}

func TestCaptureSerializesParams(t *testing.T) {
	emailRepo := NewMockEmailRepo()
	svc := newCaptureService(emailRepo, &MockAttachmentRepo{stored: map[string]bool{}})

	email, err := svc.Capture(context.Background(), capture.Delivery{
		Message:        testMessage(),
		Mailer:         "UserMailer",
		Action:         "welcome",
		DeliveryMethod: "test",
		Params: map[string]interface{}{
			"user_id": 42,
			"name":    "Alice",
			"nested":  map[string]interface{}{"a": 1},
		},
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	if email.MailerParams["user_id"] != 42 {
		t.Errorf("expected primitive param to pass through, got %v", email.MailerParams["user_id"])
	}
	if email.MailerParams["name"] != "Alice" {
		t.Errorf("expected string param to pass through, got %v", email.MailerParams["name"])
	}
	if _, ok := email.MailerParams["nested"]; !ok {
		t.Error("expected nested param to be serialized, not dropped")
	}
}

func TestCaptureAttachmentDedup(t *testing.T) {
	content := []byte("%PDF-1.4 fake invoice")

	msg := testMessage()
	msg.Attachments = []message.AttachmentPart{
		{Filename: "invoice.pdf", ContentType: "application/pdf", Content: content},
	}

	// First capture: no sibling payload exists yet, so bytes are stored.
	emailRepo := NewMockEmailRepo()
	attRepo := &MockAttachmentRepo{stored: map[string]bool{}}
	svc := newCaptureService(emailRepo, attRepo)

	_, err := svc.Capture(context.Background(), capture.Delivery{
		Message: msg, Mailer: "BillingMailer", Action: "invoice", DeliveryMethod: "test",
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if len(emailRepo.captured) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(emailRepo.captured))
	}
	first := emailRepo.captured[0]
	if !first.ContentStored() {
		t.Error("first occurrence of a payload should store bytes")
	}
	if first.ByteSize != int64(len(content)) {
		t.Errorf("expected byte_size %d, got %d", len(content), first.ByteSize)
	}

	// Second capture: a sibling row with the same hash already holds the
	// payload, so only metadata is stored.
	attRepo.stored[first.ContentHash] = true
	msg2 := testMessage()
	msg2.MessageID = "def456@mailer.example"
	msg2.Attachments = msg.Attachments

	_, err = svc.Capture(context.Background(), capture.Delivery{
		Message: msg2, Mailer: "BillingMailer", Action: "invoice", DeliveryMethod: "test",
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	second := emailRepo.captured[1]
	if second.ContentStored() {
		t.Error("duplicate payload should not be stored twice")
	}
	if second.ContentHash != first.ContentHash {
		t.Error("duplicate content must share the content hash")
	}
}

func TestCaptureMetadataOnlyStorage(t *testing.T) {
	msg := testMessage()
	msg.Attachments = []message.AttachmentPart{
		{Filename: "photo.jpg", ContentType: "image/jpeg", Content: []byte("jpegbytes")},
	}

	emailRepo := NewMockEmailRepo()
	svc := newCaptureService(emailRepo, &MockAttachmentRepo{stored: map[string]bool{}})
	svc.Attachments = config.AttachmentConfig{Storage: config.StorageMetadataOnly, MaxSize: 1024}

	_, err := svc.Capture(context.Background(), capture.Delivery{
		Message: msg, Mailer: "UserMailer", Action: "welcome", DeliveryMethod: "test",
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if len(emailRepo.captured) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(emailRepo.captured))
	}
	att := emailRepo.captured[0]
	if att.ContentStored() {
		t.Error("metadata_only storage must not persist payload bytes")
	}
	if att.ContentHash == "" {
		t.Error("content hash is recorded even without the payload")
	}
}

func TestCaptureOversizeAttachmentNotStored(t *testing.T) {
	msg := testMessage()
	msg.Attachments = []message.AttachmentPart{
		{Filename: "dump.bin", ContentType: "application/octet-stream", Content: make([]byte, 2048)},
	}

	emailRepo := NewMockEmailRepo()
	svc := newCaptureService(emailRepo, &MockAttachmentRepo{stored: map[string]bool{}})
	svc.Attachments = config.AttachmentConfig{Storage: config.StorageDatabase, MaxSize: 1024}

	_, err := svc.Capture(context.Background(), capture.Delivery{
		Message: msg, Mailer: "UserMailer", Action: "welcome", DeliveryMethod: "test",
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	att := emailRepo.captured[0]
	if att.ContentStored() {
		t.Error("payload above max_size must not be stored")
	}
	if att.ByteSize != 2048 {
		t.Errorf("byte_size should record the real size, got %d", att.ByteSize)
	}
}
