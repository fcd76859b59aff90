package repository

import (
	"database/sql"

	"github.com/mailtrace/mailtrace-backend/internal/model"
)

// AttachmentRepositoryInterface defines the operations the dedup store and
// the read path need.
type AttachmentRepositoryInterface interface {
	GetByID(id int64) (*model.Attachment, error)
	ListByEmail(emailID int64) ([]*model.Attachment, error)
	HasStoredPayload(contentHash string) (bool, error)
	ResolvePayload(att *model.Attachment) ([]byte, error)
}

// AttachmentRepository is the concrete implementation
type AttachmentRepository struct {
	DB *sql.DB
}

const attachmentColumns = `id, email_id, filename, content_type, byte_size, content_hash, blob, inline, content_id, created_at`

func scanAttachment(row interface{ Scan(...interface{}) error }) (*model.Attachment, error) {
	var a model.Attachment
	err := row.Scan(&a.ID, &a.EmailID, &a.Filename, &a.ContentType, &a.ByteSize,
		&a.ContentHash, &a.Blob, &a.Inline, &a.ContentID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID fetches an attachment by ID, nil when not found
func (r *AttachmentRepository) GetByID(id int64) (*model.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id=$1`
	att, err := scanAttachment(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return att, nil
}

func (r *AttachmentRepository) ListByEmail(emailID int64) ([]*model.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE email_id=$1 ORDER BY id`
	rows, err := r.DB.Query(query, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := []*model.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, nil
}

// HasStoredPayload reports whether any attachment row with this content hash
// already persists the payload bytes. Concurrent captures may race here; the
// acceptable outcome is one harmless duplicate payload.
func (r *AttachmentRepository) HasStoredPayload(contentHash string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM attachments WHERE content_hash=$1 AND blob IS NOT NULL)`,
		contentHash).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ResolvePayload returns the attachment's own payload when stored, otherwise
// the payload of any sibling row sharing its content hash, otherwise nil.
func (r *AttachmentRepository) ResolvePayload(att *model.Attachment) ([]byte, error) {
	if att.ContentStored() {
		return att.Blob, nil
	}
	if att.ContentHash == "" {
		return nil, nil
	}

	var blob []byte
	err := r.DB.QueryRow(
		`SELECT blob FROM attachments WHERE content_hash=$1 AND blob IS NOT NULL LIMIT 1`,
		att.ContentHash).Scan(&blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return blob, nil
}

var _ AttachmentRepositoryInterface = (*AttachmentRepository)(nil)
