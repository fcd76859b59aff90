// internal/handler/webhook_handler.go
package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/mailtrace/mailtrace-backend/internal/errors"
	"github.com/mailtrace/mailtrace-backend/internal/provider"
	"github.com/mailtrace/mailtrace-backend/internal/service"
)

// Webhook bodies are provider JSON payloads; anything past this size is not a
// legitimate event batch.
const maxWebhookBody = 2 * 1024 * 1024

// WebhookHandler receives provider delivery-event webhooks at
// POST /webhooks/{provider}.
type WebhookHandler struct {
	Registry  *provider.Registry
	Processor *service.WebhookProcessor
}

func NewWebhookHandler(registry *provider.Registry, processor *service.WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{Registry: registry, Processor: processor}
}

// HandleWebhook authenticates and processes one provider webhook call.
// 404: unknown provider. 401: signature verification failed. 422: the
// payload could not be processed. 200: zero or more events processed.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	if !h.Registry.Known(providerName) {
		log.Println("⚠️ unknown webhook provider:", providerName)
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}

	adapter, err := h.Registry.Adapter(providerName)
	if err != nil {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read error", http.StatusUnprocessableEntity)
		return
	}

	if !adapter.ValidSignature(r.Header, rawBody) {
		sigErr := appErrors.NewInvalidSignature(providerName)
		log.Println("⚠️", sigErr)
		http.Error(w, sigErr.Error(), http.StatusUnauthorized)
		return
	}

	payload := map[string]interface{}{}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		log.Println("⚠️ malformed webhook payload from", providerName, ":", err)
		http.Error(w, "malformed payload", http.StatusUnprocessableEntity)
		return
	}

	events, err := h.Processor.Process(adapter, payload)
	if err != nil {
		// Events committed before the failure stay committed.
		log.Println("⚠️ webhook processing error:", err)
		http.Error(w, "processing error", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"processed": len(events),
	})
}
