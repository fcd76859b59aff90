package message_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/mailtrace/mailtrace-backend/internal/message"
)

func TestParsePlainText(t *testing.T) {
	raw := strings.Join([]string{
		"Message-Id: <abc@mailer.example>",
		"From: Support <support@example.com>",
		"To: alice@example.com, Bob Jones <bob@example.com>",
		"Subject: Welcome!",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		"Hello Alice",
	}, "\r\n")

	msg, err := message.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if msg.MessageID != "abc@mailer.example" {
		t.Errorf("unexpected message id %q", msg.MessageID)
	}
	if msg.Subject != "Welcome!" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if len(msg.From) != 1 || msg.From[0].Name != "Support" {
		t.Errorf("unexpected from %+v", msg.From)
	}
	if len(msg.To) != 2 || msg.To[1].Address != "bob@example.com" {
		t.Errorf("unexpected to %+v", msg.To)
	}
	if msg.Multipart {
		t.Error("plain message must not be multipart")
	}
	if msg.Body == nil || !strings.Contains(msg.Body.Body, "Hello Alice") {
		t.Errorf("unexpected body %+v", msg.Body)
	}
}

func TestParseMultipartAlternative(t *testing.T) {
	raw := strings.Join([]string{
		"From: support@example.com",
		"To: alice@example.com",
		"Subject: Welcome!",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="xyz"`,
		"",
		"--xyz",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		"plain text",
		"--xyz",
		"Content-Type: text/html; charset=UTF-8",
		"",
		"<p>html text</p>",
		"--xyz--",
		"",
	}, "\r\n")

	msg, err := message.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if !msg.Multipart {
		t.Fatal("expected multipart message")
	}
	if msg.TextPart == nil || !strings.Contains(msg.TextPart.Body, "plain text") {
		t.Errorf("unexpected text part %+v", msg.TextPart)
	}
	if msg.HTMLPart == nil || !strings.Contains(msg.HTMLPart.Body, "<p>html text</p>") {
		t.Errorf("unexpected html part %+v", msg.HTMLPart)
	}
}

func TestParseAttachment(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake")
	raw := strings.Join([]string{
		"From: billing@example.com",
		"To: alice@example.com",
		"Subject: Invoice",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="outer"`,
		"",
		"--outer",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		"Invoice attached.",
		"--outer",
		"Content-Type: application/pdf",
		`Content-Disposition: attachment; filename="invoice.pdf"`,
		"Content-Transfer-Encoding: base64",
		"",
		base64.StdEncoding.EncodeToString(pdf),
		"--outer--",
		"",
	}, "\r\n")

	msg, err := message.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Filename != "invoice.pdf" {
		t.Errorf("unexpected filename %q", att.Filename)
	}
	if att.ContentType != "application/pdf" {
		t.Errorf("unexpected content type %q", att.ContentType)
	}
	if string(att.Content) != string(pdf) {
		t.Errorf("attachment bytes not decoded: %q", att.Content)
	}
	if att.IsInline() {
		t.Error("expected a regular attachment, not inline")
	}
}

func TestParseInlineImage(t *testing.T) {
	raw := strings.Join([]string{
		"From: support@example.com",
		"To: alice@example.com",
		"Subject: Logo",
		"MIME-Version: 1.0",
		`Content-Type: multipart/related; boundary="rel"`,
		"",
		"--rel",
		"Content-Type: text/html; charset=UTF-8",
		"",
		`<img src="cid:logo-cid">`,
		"--rel",
		"Content-Type: image/png",
		"Content-ID: <logo-cid>",
		`Content-Disposition: inline; filename="logo.png"`,
		"",
		"pngbytes",
		"--rel--",
		"",
	}, "\r\n")

	msg, err := message.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if !att.IsInline() {
		t.Error("expected inline attachment")
	}
	if att.ContentID != "logo-cid" {
		t.Errorf("unexpected content id %q", att.ContentID)
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := message.Parse([]byte("not a message")); err == nil {
		t.Error("expected parse error")
	}
}
