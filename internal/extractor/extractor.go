// Package extractor derives the normalized persisted fields from a composed
// message, independent of how the message was produced.
package extractor

import (
	"log"
	"strings"

	"github.com/mailtrace/mailtrace-backend/internal/message"
)

// Headers already represented as dedicated email columns; never copied into
// the curated header map.
var excludedHeaders = map[string]bool{
	"From":                      true,
	"To":                        true,
	"Cc":                        true,
	"Bcc":                       true,
	"Subject":                   true,
	"Date":                      true,
	"Message-Id":                true,
	"Message-ID":                true,
	"Mime-Version":              true,
	"MIME-Version":              true,
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
}

// Addresses holds the formatted address lists of a message.
type Addresses struct {
	From string
	To   []string
	Cc   []string
	Bcc  []string
}

// Bodies holds the extracted body slots; an absent part yields nil.
type Bodies struct {
	Text *string
	HTML *string
}

// ExtractAddresses returns the message's address lists, preferring the
// "display-name <address>" form when a display name is present. Empty address
// headers yield empty lists, never nil.
func ExtractAddresses(msg *message.Message) Addresses {
	addrs := Addresses{
		To:  formatList(msg.To),
		Cc:  formatList(msg.Cc),
		Bcc: formatList(msg.Bcc),
	}
	if len(msg.From) > 0 {
		addrs.From = msg.From[0].Format()
	}
	return addrs
}

func formatList(list []message.Address) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a.Address == "" && a.Name == "" {
			continue
		}
		out = append(out, a.Format())
	}
	return out
}

// ExtractBodies reads the text and HTML slots of a message. Multipart
// messages expose the parts independently; a single-body message is
// classified by its declared content type.
func ExtractBodies(msg *message.Message) Bodies {
	var bodies Bodies

	if msg.Multipart {
		if msg.TextPart != nil {
			text := msg.TextPart.Body
			bodies.Text = &text
		}
		if msg.HTMLPart != nil {
			html := msg.HTMLPart.Body
			bodies.HTML = &html
		}
		return bodies
	}

	if msg.Body == nil {
		return bodies
	}
	body := msg.Body.Body
	if strings.Contains(strings.ToLower(msg.Body.ContentType), "html") {
		bodies.HTML = &body
	} else {
		bodies.Text = &body
	}
	return bodies
}

// ExtractHeaders copies every header except the excluded set. Address-like
// headers keep the same formatted form as ExtractAddresses. A failure on one
// header never aborts the rest.
func ExtractHeaders(msg *message.Message) map[string]string {
	headers := map[string]string{}
	for name, value := range msg.Headers {
		if excludedHeaders[name] || excludedHeaders[canonical(name)] {
			continue
		}
		if value == "" {
			continue
		}
		headers[canonical(name)] = value
	}
	return headers
}

// canonical normalizes a header name to its canonical MIME form
// ("reply-to" -> "Reply-To").
func canonical(name string) string {
	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	out := strings.Join(parts, "-")
	// Preserve conventional casing for common acronym headers
	switch out {
	case "Message-Id":
		return "Message-ID"
	case "Mime-Version":
		return "MIME-Version"
	}
	return out
}

// Extract runs every extractor over the message. A panic in a single field
// extractor is logged and leaves that field absent; the remaining fields are
// still extracted.
func Extract(msg *message.Message) (addrs Addresses, bodies Bodies, headers map[string]string) {
	addrs = safeAddresses(msg)
	bodies = safeBodies(msg)
	headers = safeHeaders(msg)
	return
}

func safeAddresses(msg *message.Message) (out Addresses) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("⚠️ address extraction failed:", r)
			out = Addresses{To: []string{}, Cc: []string{}, Bcc: []string{}}
		}
	}()
	return ExtractAddresses(msg)
}

func safeBodies(msg *message.Message) (out Bodies) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("⚠️ body extraction failed:", r)
			out = Bodies{}
		}
	}()
	return ExtractBodies(msg)
}

func safeHeaders(msg *message.Message) (out map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("⚠️ header extraction failed:", r)
			out = map[string]string{}
		}
	}()
	return ExtractHeaders(msg)
}
