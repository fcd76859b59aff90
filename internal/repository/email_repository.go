package repository

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	appErrors "github.com/mailtrace/mailtrace-backend/internal/errors"
	"github.com/mailtrace/mailtrace-backend/internal/model"
)

// ListFilter narrows email listings. Zero values mean "no filter".
type ListFilter struct {
	Status   string
	Query    string // matches subject or recipients, substring
	To       string // matches a recipient address
	Archived bool   // list archived instead of active emails
}

type EmailRepositoryInterface interface {
	// Capture persistence
	CreateCapture(email *model.Email, attachments []*model.Attachment, initial *model.Event) error

	// Lookups
	GetByID(id int64) (*model.Email, error)
	GetByMessageID(messageID string) (*model.Email, error)
	ListEmails(offset, limit int, filter ListFilter) ([]*model.Email, int, error)

	// Mutations
	UpdateStatus(id int64, status string, deliveredAt *time.Time) error
	MarkSent(id int64, sentAt time.Time) error
	Archive(id int64) error
	Unarchive(id int64) error
	Delete(id int64) error
}

type EmailRepository struct {
	DB *sql.DB
}

const emailColumns = `id, message_id, mailer, action, template_path, mailer_params,
delivery_method, provider, delivery_settings,
from_address, to_addresses, cc_addresses, bcc_addresses, subject, text_body, html_body, headers,
status, sent_at, delivered_at,
environment, delivery_type, process_type, request_id, user_agent, remote_ip, context,
archived_at, created_at, updated_at`

func scanEmail(row interface{ Scan(...interface{}) error }) (*model.Email, error) {
	var e model.Email
	err := row.Scan(
		&e.ID, &e.MessageID, &e.Mailer, &e.Action, &e.TemplatePath, &e.MailerParams,
		&e.DeliveryMethod, &e.Provider, &e.DeliverySettings,
		&e.FromAddress, &e.ToAddresses, &e.CcAddresses, &e.BccAddresses, &e.Subject,
		&e.TextBody, &e.HTMLBody, &e.Headers,
		&e.Status, &e.SentAt, &e.DeliveredAt,
		&e.Environment, &e.DeliveryType, &e.ProcessType, &e.RequestID, &e.UserAgent,
		&e.RemoteIP, &e.Context,
		&e.ArchivedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ====================== Capture persistence ======================

// CreateCapture persists the email row and its initial event in one
// transaction, then the attachments outside it. A failed statement aborts a
// Postgres transaction, so attachment inserts cannot share one with the email
// row: each attachment is inserted on its own, and a failure on one is logged
// and skipped without losing the capture. A failure on the email row or the
// initial event aborts everything.
func (r *EmailRepository) CreateCapture(email *model.Email, attachments []*model.Attachment, initial *model.Event) error {
	if err := email.Validate(); err != nil {
		return err
	}

	now := time.Now()
	email.CreatedAt = now
	email.UpdatedAt = now
	if email.Status == "" {
		email.Status = model.StatusPending
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO emails
        (message_id, mailer, action, template_path, mailer_params,
         delivery_method, provider, delivery_settings,
         from_address, to_addresses, cc_addresses, bcc_addresses, subject, text_body, html_body, headers,
         status, sent_at, delivered_at,
         environment, delivery_type, process_type, request_id, user_agent, remote_ip, context,
         created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
                $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
        RETURNING id
    `
	err = tx.QueryRow(query,
		email.MessageID, email.Mailer, email.Action, email.TemplatePath, email.MailerParams,
		email.DeliveryMethod, email.Provider, email.DeliverySettings,
		email.FromAddress, email.ToAddresses, email.CcAddresses, email.BccAddresses,
		email.Subject, email.TextBody, email.HTMLBody, email.Headers,
		email.Status, email.SentAt, email.DeliveredAt,
		email.Environment, email.DeliveryType, email.ProcessType, email.RequestID,
		email.UserAgent, email.RemoteIP, email.Context,
		email.CreatedAt, email.UpdatedAt,
	).Scan(&email.ID)
	if err != nil {
		return err
	}

	if initial != nil {
		initial.EmailID = email.ID
		initial.CreatedAt = now
		err = tx.QueryRow(`
            INSERT INTO events (email_id, event_type, provider, payload, occurred_at, created_at)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING id
        `, initial.EmailID, initial.EventType, initial.Provider, initial.Payload,
			initial.OccurredAt, initial.CreatedAt).Scan(&initial.ID)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, att := range attachments {
		att.EmailID = email.ID
		att.CreatedAt = now
		_, err := r.DB.Exec(`
            INSERT INTO attachments
            (email_id, filename, content_type, byte_size, content_hash, blob, inline, content_id, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        `, att.EmailID, att.Filename, att.ContentType, att.ByteSize, att.ContentHash,
			att.Blob, att.Inline, att.ContentID, att.CreatedAt)
		if err != nil {
			log.Println("⚠️ failed to persist attachment", att.Filename, ":", err)
			continue
		}
	}

	return nil
}

// ====================== Lookups ======================

func (r *EmailRepository) GetByID(id int64) (*model.Email, error) {
	query := fmt.Sprintf(`SELECT %s FROM emails WHERE id=$1`, emailColumns)
	email, err := scanEmail(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewEmailNotFound(id)
		}
		return nil, err
	}
	return email, nil
}

// GetByMessageID returns nil without error when no email matches; webhook
// payloads routinely reference messages outside this system.
func (r *EmailRepository) GetByMessageID(messageID string) (*model.Email, error) {
	query := fmt.Sprintf(`SELECT %s FROM emails WHERE message_id=$1`, emailColumns)
	email, err := scanEmail(r.DB.QueryRow(query, messageID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return email, nil
}

func (r *EmailRepository) ListEmails(offset, limit int, filter ListFilter) ([]*model.Email, int, error) {
	emails := []*model.Email{}

	where, args := buildEmailFilter(filter)

	query := fmt.Sprintf(`SELECT %s FROM emails %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		emailColumns, where, len(args)+1, len(args)+2)
	rows, err := r.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, 0, err
		}
		emails = append(emails, e)
	}

	// Count total
	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM emails %s`, where)
	if err := r.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return emails, total, nil
}

func buildEmailFilter(filter ListFilter) (string, []interface{}) {
	where := `WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.Archived {
		where += ` AND archived_at IS NOT NULL`
	} else {
		where += ` AND archived_at IS NULL`
	}
	if filter.Status != "" {
		where += fmt.Sprintf(` AND status=$%d`, argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.Query != "" {
		where += fmt.Sprintf(` AND (subject ILIKE '%%' || $%d || '%%' OR to_addresses::text ILIKE '%%' || $%d || '%%')`, argPos, argPos)
		args = append(args, filter.Query)
		argPos++
	}
	if filter.To != "" {
		where += fmt.Sprintf(` AND to_addresses::text ILIKE '%%' || $%d || '%%'`, argPos)
		args = append(args, filter.To)
		argPos++
	}

	return where, args
}

// ====================== Mutations ======================

func (r *EmailRepository) UpdateStatus(id int64, status string, deliveredAt *time.Time) error {
	if deliveredAt != nil {
		_, err := r.DB.Exec(
			`UPDATE emails SET status=$1, delivered_at=$2, updated_at=NOW() WHERE id=$3`,
			status, deliveredAt, id)
		return err
	}
	_, err := r.DB.Exec(`UPDATE emails SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}

// MarkSent stamps the moment a deferred send actually went out.
func (r *EmailRepository) MarkSent(id int64, sentAt time.Time) error {
	_, err := r.DB.Exec(
		`UPDATE emails SET status=$1, sent_at=$2, updated_at=NOW() WHERE id=$3`,
		model.StatusSent, sentAt, id)
	return err
}

func (r *EmailRepository) Archive(id int64) error {
	_, err := r.DB.Exec(`UPDATE emails SET archived_at=NOW(), updated_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *EmailRepository) Unarchive(id int64) error {
	_, err := r.DB.Exec(`UPDATE emails SET archived_at=NULL, updated_at=NOW() WHERE id=$1`, id)
	return err
}

// Delete removes the email; attachments and events cascade at the schema level.
func (r *EmailRepository) Delete(id int64) error {
	_, err := r.DB.Exec(`DELETE FROM emails WHERE id=$1`, id)
	return err
}

var _ EmailRepositoryInterface = (*EmailRepository)(nil)
