// internal/message/parse.go
package message

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// Parse parses a raw RFC 5322 message into a Message. It handles plain text
// and HTML bodies, multipart/alternative and nested multipart containers, and
// attachment parts with base64 or quoted-printable transfer encodings.
func Parse(raw []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &Message{
		Headers: map[string]string{},
	}
	for key, values := range msg.Header {
		if len(values) > 0 {
			result.Headers[key] = values[0]
		}
	}

	result.MessageID = strings.Trim(msg.Header.Get("Message-Id"), "<>")
	result.Subject = msg.Header.Get("Subject")
	result.From = parseAddressList(msg.Header.Get("From"))
	result.To = parseAddressList(msg.Header.Get("To"))
	result.Cc = parseAddressList(msg.Header.Get("Cc"))
	result.Bcc = parseAddressList(msg.Header.Get("Bcc"))

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Unparseable content type: treat the body as plain text.
		log.Printf("⚠️ unparseable content type %q, treating as text/plain: %v", contentType, err)
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read message body: %w", readErr)
		}
		result.Body = &Part{ContentType: "text/plain", Body: string(body)}
		return result, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		result.Multipart = true
		if err := parseMultipart(msg.Body, boundary, result); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
	} else {
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read message body: %w", err)
		}
		result.Body = &Part{ContentType: mediaType, Body: string(body)}
	}

	return result, nil
}

func parseAddressList(header string) []Address {
	if strings.TrimSpace(header) == "" {
		return []Address{}
	}
	parsed, err := mail.ParseAddressList(header)
	if err != nil {
		// Fall back to comma splitting for non-conforming lists
		out := []Address{}
		for _, piece := range strings.Split(header, ",") {
			piece = strings.TrimSpace(piece)
			if piece != "" {
				out = append(out, Address{Address: piece})
			}
		}
		return out
	}
	out := make([]Address, 0, len(parsed))
	for _, a := range parsed {
		out = append(out, Address{Name: a.Name, Address: a.Address})
	}
	return out
}

func parseMultipart(body io.Reader, boundary string, result *Message) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			log.Printf("⚠️ skipping part with unparseable content type %q: %v", partContentType, err)
			continue
		}

		disposition, dispParams, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
		contentID := strings.Trim(part.Header.Get("Content-Id"), "<>")

		// Nested multipart (e.g. multipart/alternative inside multipart/mixed)
		if strings.HasPrefix(mediaType, "multipart/") {
			nested := params["boundary"]
			if nested == "" {
				log.Println("⚠️ nested multipart missing boundary, skipping")
				continue
			}
			if err := parseMultipart(part, nested, result); err != nil {
				log.Println("⚠️ failed to parse nested multipart:", err)
			}
			continue
		}

		content, err := readPartContent(part)
		if err != nil {
			log.Printf("⚠️ failed to read part content (%s): %v", mediaType, err)
			continue
		}

		if disposition == "attachment" || disposition == "inline" || contentID != "" {
			filename := extractFilename(part, dispParams, params)
			if filename != "" || disposition != "" {
				result.Attachments = append(result.Attachments, AttachmentPart{
					Filename:    filename,
					ContentType: mediaType,
					Content:     content,
					ContentID:   contentID,
					Disposition: disposition,
				})
				continue
			}
		}

		switch mediaType {
		case "text/plain":
			if result.TextPart == nil {
				result.TextPart = &Part{ContentType: mediaType, Body: string(content)}
			}
		case "text/html":
			if result.HTMLPart == nil {
				result.HTMLPart = &Part{ContentType: mediaType, Body: string(content)}
			}
		default:
			filename := extractFilename(part, dispParams, params)
			if filename != "" {
				result.Attachments = append(result.Attachments, AttachmentPart{
					Filename:    filename,
					ContentType: mediaType,
					Content:     content,
					ContentID:   contentID,
					Disposition: disposition,
				})
			} else {
				log.Printf("⚠️ skipping unrecognized MIME part: %s", mediaType)
			}
		}
	}

	return nil
}

// readPartContent reads a MIME part, decoding base64 transfer encoding.
// Quoted-printable is decoded by the multipart reader itself.
func readPartContent(part *multipart.Part) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(part.Header.Get("Content-Transfer-Encoding")))

	raw, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}

	if encoding == "base64" {
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	}
	return raw, nil
}

func extractFilename(part *multipart.Part, dispParams, typeParams map[string]string) string {
	if name := part.FileName(); name != "" {
		return name
	}
	if name := dispParams["filename"]; name != "" {
		return name
	}
	return typeParams["name"]
}
