// internal/provider/mailpace.go
package provider

import (
	"crypto/ed25519"
	"encoding/hex"
	"log"
	"net/http"

	"github.com/mailtrace/mailtrace-backend/internal/config"
	"github.com/mailtrace/mailtrace-backend/internal/model"
)

// Mailpace signs the raw webhook body with Ed25519; the signature header and
// the configured public key are both hex encoded.
// https://docs.mailpace.com/guide/webhooks
type Mailpace struct {
	publicKeyHex string
}

var mailpaceEventMap = map[string]string{
	"email.queued":    model.EventQueued,
	"email.delivered": model.EventDelivered,
	"email.deferred":  model.EventDeferred,
	"email.bounced":   model.EventBounced,
	"email.spam":      model.EventSpam,
}

func NewMailpace(cfg config.ProviderConfig) Adapter {
	return &Mailpace{publicKeyHex: cfg.PublicKey}
}

func (m *Mailpace) Name() string { return "mailpace" }

func (m *Mailpace) ValidSignature(headers http.Header, rawBody []byte) bool {
	signatureHex := headers.Get("X-MailPace-Signature")
	if signatureHex == "" {
		return false
	}
	if m.publicKeyHex == "" {
		return false
	}

	publicKey, err := hex.DecodeString(m.publicKeyHex)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		log.Println("⚠️ mailpace: invalid webhook public key")
		return false
	}
	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(publicKey), rawBody, signature)
}

func (m *Mailpace) NormalizeEvents(payload map[string]interface{}) []NormalizedEvent {
	native, _ := payload["event"].(string)
	eventType, ok := mailpaceEventMap[native]
	if !ok {
		return []NormalizedEvent{}
	}

	messageID := digString(payload,
		[]string{"payload", "message_id"},
		[]string{"data", "message_id"},
		[]string{"message_id"},
	)
	timestamp := digString(payload,
		[]string{"payload", "timestamp"},
		[]string{"data", "timestamp"},
		[]string{"timestamp"},
	)

	return []NormalizedEvent{{
		MessageID:  messageID,
		EventType:  eventType,
		OccurredAt: parseTimestamp(timestamp),
		Payload:    payload,
	}}
}

var _ Adapter = (*Mailpace)(nil)
