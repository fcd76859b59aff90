// Package message defines the in-memory representation of a composed email
// message as handed to the delivery interception hook.
package message

import "net/mail"

// Address is a single mailbox, optionally with a display name.
type Address struct {
	Name    string
	Address string
}

// Format renders the address in "display-name <address>" form when a display
// name is present, otherwise the bare address.
func (a Address) Format() string {
	if a.Name == "" {
		return a.Address
	}
	return (&mail.Address{Name: a.Name, Address: a.Address}).String()
}

// Part is one body part of a message.
type Part struct {
	ContentType string
	Body        string
}

// AttachmentPart is one attachment of a message, with its raw decoded bytes.
type AttachmentPart struct {
	Filename    string
	ContentType string
	Content     []byte
	ContentID   string
	Disposition string // "attachment" or "inline"
}

// IsInline reports whether the part should be rendered inline (CID reference).
func (p AttachmentPart) IsInline() bool {
	return p.Disposition == "inline" || p.ContentID != ""
}

// Message is a composed email as actually constructed at send time: final
// headers, resolved address lists, body parts and attachments.
type Message struct {
	MessageID string
	Subject   string

	From []Address
	To   []Address
	Cc   []Address
	Bcc  []Address

	// Headers holds every header of the final message, first value per name.
	Headers map[string]string

	// Multipart messages expose text and HTML parts independently; a
	// non-multipart message carries its single body in Body.
	Multipart bool
	TextPart  *Part
	HTMLPart  *Part
	Body      *Part

	Attachments []AttachmentPart
}
