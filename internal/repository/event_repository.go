package repository

import (
	"database/sql"
	"time"

	"github.com/mailtrace/mailtrace-backend/internal/model"
)

type EventRepositoryInterface interface {
	Create(event *model.Event) error
	ListByEmail(emailID int64) ([]*model.Event, error)
}

type EventRepository struct {
	DB *sql.DB
}

// Create appends an event row. Events are never updated or deleted except by
// cascading email deletion.
func (r *EventRepository) Create(event *model.Event) error {
	event.CreatedAt = time.Now()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = event.CreatedAt
	}

	query := `
        INSERT INTO events (email_id, event_type, provider, payload, occurred_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		event.EmailID, event.EventType, event.Provider, event.Payload,
		event.OccurredAt, event.CreatedAt).Scan(&event.ID)
}

// ListByEmail fetches events in reverse chronological order
func (r *EventRepository) ListByEmail(emailID int64) ([]*model.Event, error) {
	query := `
        SELECT id, email_id, event_type, provider, payload, occurred_at, created_at
        FROM events
        WHERE email_id=$1
        ORDER BY occurred_at DESC
    `
	rows, err := r.DB.Query(query, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.EmailID, &e.EventType, &e.Provider,
			&e.Payload, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, nil
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
