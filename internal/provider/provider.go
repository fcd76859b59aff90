// Package provider maps provider-specific webhook payloads to the canonical
// event vocabulary and verifies their authenticity.
package provider

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mailtrace/mailtrace-backend/internal/config"
	appErrors "github.com/mailtrace/mailtrace-backend/internal/errors"
)

// NormalizedEvent is one provider event translated to the canonical type set.
type NormalizedEvent struct {
	MessageID  string
	EventType  string
	OccurredAt time.Time
	Payload    map[string]interface{}
}

// Adapter is implemented once per supported delivery provider.
type Adapter interface {
	// Name identifies the provider in logs and stored events.
	Name() string

	// ValidSignature verifies the payload's authenticity scheme. Missing
	// headers, missing configured keys and verification failures all return
	// false, never an error.
	ValidSignature(headers http.Header, rawBody []byte) bool

	// NormalizeEvents maps the provider's native event vocabulary onto the
	// canonical set. Unknown native types yield no event.
	NormalizeEvents(payload map[string]interface{}) []NormalizedEvent
}

// Factory constructs an adapter from its provider configuration.
type Factory func(cfg config.ProviderConfig) Adapter

// Registry maps webhook routing keys to adapter factories. It is populated at
// startup; unknown keys are rejected before any adapter is constructed.
type Registry struct {
	factories map[string]Factory
	config    *config.Config
}

func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		factories: map[string]Factory{},
		config:    cfg,
	}
}

// Register installs a factory under a routing key.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Adapter constructs the adapter registered under name.
func (r *Registry) Adapter(name string) (Adapter, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, appErrors.NewUnknownProvider(name)
	}
	return factory(r.config.Provider(name)), nil
}

// Known reports whether a routing key names a registered adapter.
func (r *Registry) Known(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// DefaultRegistry returns a registry with every built-in adapter installed.
func DefaultRegistry(cfg *config.Config) *Registry {
	r := NewRegistry(cfg)
	r.Register("mailpace", NewMailpace)
	r.Register("mailgun", NewMailgun)
	return r
}

// decodeJSONBody parses a raw webhook body into a generic payload map.
func decodeJSONBody(rawBody []byte) (map[string]interface{}, error) {
	payload := map[string]interface{}{}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// parseTimestamp parses a provider timestamp, falling back to ingestion time.
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05 -0700", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Now()
}

// digString walks nested maps for the first present string at any of the
// given dotted paths.
func digString(payload map[string]interface{}, paths ...[]string) string {
	for _, path := range paths {
		current := interface{}(payload)
		ok := true
		for _, key := range path {
			m, isMap := current.(map[string]interface{})
			if !isMap {
				ok = false
				break
			}
			value, exists := m[key]
			if !exists {
				ok = false
				break
			}
			current = value
		}
		if ok {
			if s, isStr := current.(string); isStr && s != "" {
				return s
			}
		}
	}
	return ""
}
