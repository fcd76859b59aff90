// internal/model/event.go
package model

import "time"

// Normalized event types. opened and clicked are reported by some providers
// but never become an email status.
const (
	EventQueued      = "queued"
	EventSent        = "sent"
	EventDelivered   = "delivered"
	EventDeferred    = "deferred"
	EventBounced     = "bounced"
	EventSoftBounced = "soft_bounced"
	EventFailed      = "failed"
	EventSpam        = "spam"
	EventRejected    = "rejected"
	EventOpened      = "opened"
	EventClicked     = "clicked"
)

var positiveEvents = map[string]bool{
	EventQueued: true, EventSent: true, EventDelivered: true,
	EventOpened: true, EventClicked: true,
}

var negativeEvents = map[string]bool{
	EventBounced: true, EventSoftBounced: true, EventFailed: true,
	EventSpam: true, EventDeferred: true, EventRejected: true,
}

// Event is one lifecycle transition or webhook-reported occurrence.
// Rows are append-only.
type Event struct {
	ID         int64     `db:"id" json:"id"`
	EmailID    int64     `db:"email_id" json:"email_id"`
	EventType  string    `db:"event_type" json:"event_type"`
	Provider   *string   `db:"provider" json:"provider,omitempty"`
	Payload    JSONMap   `db:"payload" json:"payload"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

func (e *Event) Positive() bool { return positiveEvents[e.EventType] }
func (e *Event) Negative() bool { return negativeEvents[e.EventType] }
