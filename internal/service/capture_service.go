// internal/service/capture_service.go
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/mailtrace/mailtrace-backend/internal/capture"
	"github.com/mailtrace/mailtrace-backend/internal/config"
	"github.com/mailtrace/mailtrace-backend/internal/extractor"
	"github.com/mailtrace/mailtrace-backend/internal/message"
	"github.com/mailtrace/mailtrace-backend/internal/model"
	"github.com/mailtrace/mailtrace-backend/internal/repository"
)

// Delivery settings that survive sanitization. Passwords, user names, API
// keys and any other credential-shaped key are dropped before persist.
var safeSettingsKeys = []string{
	"address", "port", "domain", "authentication",
	"tls", "enable_starttls", "enable_starttls_auto", "ssl",
}

// Substring matches against an SMTP transport host, checked in order.
var smtpProviderPatterns = []struct {
	substring string
	provider  string
}{
	{"mailpace", "mailpace"},
	{"sendgrid", "sendgrid"},
	{"postmark", "postmark"},
	{"amazonaws", "ses"},
	{"ses", "ses"},
	{"mailgun", "mailgun"},
	{"sparkpost", "sparkpost"},
	{"mandrill", "mandrill"},
}

// Identifiable lets mailer params reference a domain object by type name and
// identity instead of serializing the whole value.
type Identifiable interface {
	EntityType() string
	EntityID() interface{}
}

// CaptureService persists one Email with its attachments and initial event
// per observed send.
type CaptureService struct {
	EmailRepo      repository.EmailRepositoryInterface
	AttachmentRepo repository.AttachmentRepositoryInterface
	Attachments    config.AttachmentConfig
	Environment    string
	ProcessType    string // web, worker, console
}

// Capture records the message. All rows are persisted together; a validation
// failure (missing from/to) surfaces as an error for the interception hook to
// swallow.
func (s *CaptureService) Capture(ctx context.Context, in capture.Delivery) (*model.Email, error) {
	if in.Message == nil {
		return nil, fmt.Errorf("no message to capture")
	}

	status := in.InitialStatus
	if status == "" {
		status = model.StatusSent
	}

	addrs, bodies, headers := extractor.Extract(in.Message)

	email := &model.Email{
		Mailer:           in.Mailer,
		Action:           in.Action,
		MailerParams:     serializeParams(in.Params),
		DeliveryMethod:   in.DeliveryMethod,
		Provider:         detectProvider(in.DeliveryMethod, in.DeliverySettings),
		DeliverySettings: sanitizeDeliverySettings(in.DeliverySettings),
		FromAddress:      addrs.From,
		ToAddresses:      addrs.To,
		CcAddresses:      addrs.Cc,
		BccAddresses:     addrs.Bcc,
		Subject:          in.Message.Subject,
		TextBody:         bodies.Text,
		HTMLBody:         bodies.HTML,
		Headers:          headers,
		Status:           status,
		Environment:      s.Environment,
		DeliveryType:     in.DeliveryType,
		ProcessType:      s.ProcessType,
		Context:          model.JSONMap{"go_version": runtime.Version()},
	}

	if in.Message.MessageID != "" {
		messageID := in.Message.MessageID
		email.MessageID = &messageID
	}
	if path := templatePath(in.Mailer, in.Action); path != "" {
		email.TemplatePath = &path
	}
	if status == model.StatusSent {
		now := time.Now()
		email.SentAt = &now
	}
	if rc, ok := capture.RequestContextFrom(ctx); ok {
		if rc.RequestID != "" {
			email.RequestID = &rc.RequestID
		}
		if rc.UserAgent != "" {
			email.UserAgent = &rc.UserAgent
		}
		if rc.RemoteIP != "" {
			email.RemoteIP = &rc.RemoteIP
		}
	}

	if err := email.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to capture: %w", err)
	}

	attachments := s.buildAttachments(in.Message.Attachments)

	initial := &model.Event{
		EventType:  status,
		Payload:    model.JSONMap{},
		OccurredAt: time.Now(),
	}

	if err := s.EmailRepo.CreateCapture(email, attachments, initial); err != nil {
		return nil, err
	}
	return email, nil
}

// buildAttachments applies the dedup storage policy to each attachment part.
// Under the database policy the payload is persisted only when it fits the
// size ceiling and no sibling row with the same content hash already has it.
func (s *CaptureService) buildAttachments(parts []message.AttachmentPart) []*model.Attachment {
	attachments := make([]*model.Attachment, 0, len(parts))

	for _, part := range parts {
		sum := sha256.Sum256(part.Content)
		att := &model.Attachment{
			Filename:    part.Filename,
			ContentType: part.ContentType,
			ByteSize:    int64(len(part.Content)),
			ContentHash: hex.EncodeToString(sum[:]),
			Inline:      part.IsInline(),
		}
		if att.Filename == "" {
			att.Filename = "unnamed"
		}
		if part.ContentID != "" {
			contentID := part.ContentID
			att.ContentID = &contentID
		}

		if s.Attachments.Storage == config.StorageDatabase && att.ByteSize <= s.Attachments.MaxSize {
			stored, err := s.AttachmentRepo.HasStoredPayload(att.ContentHash)
			if err != nil {
				log.Println("⚠️ dedup lookup failed, storing payload:", err)
			}
			if !stored {
				att.Blob = part.Content
			}
		}

		attachments = append(attachments, att)
	}
	return attachments
}

// detectProvider resolves a provider name from the delivery method; generic
// SMTP transports are sniffed by host.
func detectProvider(method string, settings map[string]interface{}) string {
	switch strings.ToLower(method) {
	case "mailpace", "postmark", "sendgrid", "ses", "mailgun", "sparkpost", "test":
		return strings.ToLower(method)
	case "smtp":
		host := ""
		if settings != nil {
			host = strings.ToLower(fmt.Sprintf("%v", settings["address"]))
		}
		for _, p := range smtpProviderPatterns {
			if strings.Contains(host, p.substring) {
				return p.provider
			}
		}
		return "smtp"
	default:
		return strings.ToLower(method)
	}
}

// sanitizeDeliverySettings keeps only the allow-listed non-secret keys,
// stringifying their values.
func sanitizeDeliverySettings(settings map[string]interface{}) model.StringMap {
	out := model.StringMap{}
	if settings == nil {
		return out
	}
	for _, key := range safeSettingsKeys {
		if value, ok := settings[key]; ok && value != nil {
			out[key] = fmt.Sprintf("%v", value)
		}
	}
	return out
}

// serializeParams shallowly serializes mailer params: primitives pass
// through, identifiable objects degrade to {_class,_id}, everything else
// becomes its string form. Failure yields an empty map, never an error.
func serializeParams(params map[string]interface{}) (out model.JSONMap) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("⚠️ failed to serialize mailer params:", r)
			out = model.JSONMap{}
		}
	}()

	out = model.JSONMap{}
	for key, value := range params {
		out[key] = serializeValue(value, true)
	}
	return out
}

func serializeValue(value interface{}, topLevel bool) interface{} {
	switch v := value.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case map[string]interface{}:
		if !topLevel {
			return fmt.Sprintf("%v", v)
		}
		nested := map[string]interface{}{}
		for k, item := range v {
			nested[k] = serializeValue(item, false)
		}
		return nested
	case []interface{}:
		if !topLevel {
			return fmt.Sprintf("%v", v)
		}
		items := make([]interface{}, 0, len(v))
		for _, item := range v {
			items = append(items, serializeValue(item, false))
		}
		return items
	default:
		if ident, ok := value.(Identifiable); ok {
			return map[string]interface{}{"_class": ident.EntityType(), "_id": ident.EntityID()}
		}
		return fmt.Sprintf("%v", value)
	}
}

func templatePath(mailer, action string) string {
	if mailer == "" || action == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", strings.ToLower(mailer), action)
}

var _ capture.Capturer = (*CaptureService)(nil)
