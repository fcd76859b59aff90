// internal/model/email.go
package model

import (
	"fmt"
	"strings"
	"time"
)

// Email statuses. The status always mirrors the most recent event type that
// maps to a status; a late webhook can move it backwards.
const (
	StatusPending     = "pending"
	StatusQueued      = "queued"
	StatusSent        = "sent"
	StatusDelivered   = "delivered"
	StatusDeferred    = "deferred"
	StatusBounced     = "bounced"
	StatusSoftBounced = "soft_bounced"
	StatusFailed      = "failed"
	StatusSpam        = "spam"
	StatusRejected    = "rejected"
	StatusUnknown     = "unknown"
)

// ValidStatuses is the full status vocabulary, in lifecycle order.
var ValidStatuses = []string{
	StatusPending, StatusQueued, StatusSent, StatusDelivered, StatusDeferred,
	StatusBounced, StatusSoftBounced, StatusFailed, StatusSpam, StatusRejected,
	StatusUnknown,
}

// IsValidStatus reports whether s is a recognized email status.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Email is one captured outbound message.
type Email struct {
	ID        int64   `db:"id" json:"id"`
	MessageID *string `db:"message_id" json:"message_id,omitempty"`

	// Application context
	Mailer       string  `db:"mailer" json:"mailer"`
	Action       string  `db:"action" json:"action"`
	TemplatePath *string `db:"template_path" json:"template_path,omitempty"`
	MailerParams JSONMap `db:"mailer_params" json:"mailer_params"`

	// Delivery mechanism
	DeliveryMethod   string    `db:"delivery_method" json:"delivery_method"`
	Provider         string    `db:"provider" json:"provider"`
	DeliverySettings StringMap `db:"delivery_settings" json:"delivery_settings"`

	// Content
	FromAddress  string     `db:"from_address" json:"from_address"`
	ToAddresses  StringList `db:"to_addresses" json:"to_addresses"`
	CcAddresses  StringList `db:"cc_addresses" json:"cc_addresses"`
	BccAddresses StringList `db:"bcc_addresses" json:"bcc_addresses"`
	Subject      string     `db:"subject" json:"subject"`
	TextBody     *string    `db:"text_body" json:"text_body,omitempty"`
	HTMLBody     *string    `db:"html_body" json:"html_body,omitempty"`
	Headers      StringMap  `db:"headers" json:"headers"`

	// Status tracking
	Status      string     `db:"status" json:"status"`
	SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`

	// Environment / process context
	Environment  string  `db:"environment" json:"environment"`
	DeliveryType string  `db:"delivery_type" json:"delivery_type"` // sync or queued
	ProcessType  string  `db:"process_type" json:"process_type"`   // web, worker, console
	RequestID    *string `db:"request_id" json:"request_id,omitempty"`
	UserAgent    *string `db:"user_agent" json:"user_agent,omitempty"`
	RemoteIP     *string `db:"remote_ip" json:"remote_ip,omitempty"`
	Context      JSONMap `db:"context" json:"context"`

	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate checks the invariants that must hold before persisting.
func (e *Email) Validate() error {
	if strings.TrimSpace(e.FromAddress) == "" {
		return fmt.Errorf("from_address is required")
	}
	if len(e.ToAddresses) == 0 {
		return fmt.Errorf("to_addresses must not be empty")
	}
	return nil
}

func (e *Email) HasText() bool { return e.TextBody != nil && *e.TextBody != "" }
func (e *Email) HasHTML() bool { return e.HTMLBody != nil && *e.HTMLBody != "" }

// IsMultipart reports whether the email carries both text and HTML bodies.
func (e *Email) IsMultipart() bool { return e.HasText() && e.HasHTML() }

func (e *Email) IsArchived() bool { return e.ArchivedAt != nil }

// FormatDescription describes the stored content shape.
func (e *Email) FormatDescription() string {
	switch {
	case e.IsMultipart():
		return "HTML and Text (Multipart)"
	case e.HasHTML():
		return "HTML Only"
	case e.HasText():
		return "Text Only"
	default:
		return "Unknown"
	}
}

// PrimaryRecipient returns the first To address, or "" when none.
func (e *Email) PrimaryRecipient() string {
	if len(e.ToAddresses) == 0 {
		return ""
	}
	return e.ToAddresses[0]
}

// AllRecipients returns to+cc+bcc, deduplicated, in order of first appearance.
func (e *Email) AllRecipients() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, list := range []StringList{e.ToAddresses, e.CcAddresses, e.BccAddresses} {
		for _, addr := range list {
			if addr == "" || seen[addr] {
				continue
			}
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}

// AllHeaders merges the headers stored in dedicated columns with the curated
// custom header map. Custom headers win on collision.
func (e *Email) AllHeaders() map[string]string {
	date := e.CreatedAt
	if e.SentAt != nil {
		date = *e.SentAt
	}
	headers := map[string]string{
		"From":    e.FromAddress,
		"To":      strings.Join(e.ToAddresses, ", "),
		"Subject": e.Subject,
		"Date":    date.Format(time.RFC1123Z),
	}
	if e.MessageID != nil && *e.MessageID != "" {
		headers["Message-ID"] = *e.MessageID
	}
	if len(e.CcAddresses) > 0 {
		headers["Cc"] = strings.Join(e.CcAddresses, ", ")
	}
	if len(e.BccAddresses) > 0 {
		headers["Bcc"] = strings.Join(e.BccAddresses, ", ")
	}
	for name, value := range e.Headers {
		if value != "" {
			headers[name] = value
		}
	}
	return headers
}

// RawMessage rebuilds an RFC 5322 representation of the stored email. Used by
// the resend pipeline to replay a capture through the send path.
func (e *Email) RawMessage() string {
	var b strings.Builder

	headerOrder := []string{"From", "To", "Cc", "Bcc", "Subject", "Date", "Message-ID"}
	all := e.AllHeaders()
	written := map[string]bool{}
	for _, name := range headerOrder {
		if v, ok := all[name]; ok && v != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", name, v)
			written[name] = true
		}
	}
	for name, v := range all {
		if !written[name] && v != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", name, v)
		}
	}

	b.WriteString("MIME-Version: 1.0\r\n")

	if e.IsMultipart() {
		boundary := fmt.Sprintf("----=_Part_%d_%d", e.ID, e.CreatedAt.Unix())
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(*e.TextBody)
		b.WriteString("\r\n")

		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(*e.HTMLBody)
		b.WriteString("\r\n")

		fmt.Fprintf(&b, "--%s--\r\n", boundary)
	} else if e.HasHTML() {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(*e.HTMLBody)
		b.WriteString("\r\n")
	} else if e.HasText() {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(*e.TextBody)
		b.WriteString("\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	}

	return b.String()
}

// TemplateIdentifier is the mailer/action pair, e.g. "user_mailer/welcome".
func (e *Email) TemplateIdentifier() string {
	if e.Mailer == "" || e.Action == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", strings.ToLower(e.Mailer), e.Action)
}
