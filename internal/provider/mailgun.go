// internal/provider/mailgun.go
package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/mailtrace/mailtrace-backend/internal/config"
	"github.com/mailtrace/mailtrace-backend/internal/model"
)

// Mailgun webhooks carry a signature block inside the JSON body: the hex
// HMAC-SHA256 of timestamp+token under the configured signing key.
// https://documentation.mailgun.com/docs/mailgun/user-manual/events/#webhooks
type Mailgun struct {
	signingKey string
}

var mailgunEventMap = map[string]string{
	"accepted":   model.EventQueued,
	"delivered":  model.EventDelivered,
	"complained": model.EventSpam,
	"rejected":   model.EventRejected,
	"opened":     model.EventOpened,
	"clicked":    model.EventClicked,
}

func NewMailgun(cfg config.ProviderConfig) Adapter {
	return &Mailgun{signingKey: cfg.SigningKey}
}

func (m *Mailgun) Name() string { return "mailgun" }

func (m *Mailgun) ValidSignature(headers http.Header, rawBody []byte) bool {
	if m.signingKey == "" {
		return false
	}

	payload, err := decodeJSONBody(rawBody)
	if err != nil {
		return false
	}

	timestamp := digString(payload, []string{"signature", "timestamp"})
	token := digString(payload, []string{"signature", "token"})
	signature := digString(payload, []string{"signature", "signature"})
	if timestamp == "" || token == "" || signature == "" {
		return false
	}

	h := hmac.New(sha256.New, []byte(m.signingKey))
	h.Write([]byte(timestamp + token))
	expected := hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func (m *Mailgun) NormalizeEvents(payload map[string]interface{}) []NormalizedEvent {
	eventData, _ := payload["event-data"].(map[string]interface{})
	if eventData == nil {
		return []NormalizedEvent{}
	}

	native, _ := eventData["event"].(string)
	eventType, ok := mailgunEventMap[native]
	if !ok {
		// failed events split on severity: permanent failures are bounces,
		// temporary ones soft bounces
		if native != "failed" {
			return []NormalizedEvent{}
		}
		if severity, _ := eventData["severity"].(string); severity == "temporary" {
			eventType = model.EventSoftBounced
		} else {
			eventType = model.EventBounced
		}
	}

	messageID := digString(eventData,
		[]string{"message", "headers", "message-id"},
		[]string{"message-id"},
	)

	occurredAt := time.Now()
	if ts, isFloat := eventData["timestamp"].(float64); isFloat {
		sec := int64(ts)
		occurredAt = time.Unix(sec, int64((ts-float64(sec))*1e9))
	}

	return []NormalizedEvent{{
		MessageID:  messageID,
		EventType:  eventType,
		OccurredAt: occurredAt,
		Payload:    payload,
	}}
}

var _ Adapter = (*Mailgun)(nil)
