// internal/model/attachment.go
package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Attachment is one file attached to a captured email. Blob may be nil when
// the storage policy skipped the payload or another row with the same
// ContentHash already stores it.
type Attachment struct {
	ID          int64     `db:"id" json:"id"`
	EmailID     int64     `db:"email_id" json:"email_id"`
	Filename    string    `db:"filename" json:"filename"`
	ContentType string    `db:"content_type" json:"content_type"`
	ByteSize    int64     `db:"byte_size" json:"byte_size"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	Blob        []byte    `db:"blob" json:"-"`
	Inline      bool      `db:"inline" json:"inline"`
	ContentID   *string   `db:"content_id" json:"content_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ContentStored reports whether this row carries the payload itself.
func (a *Attachment) ContentStored() bool { return len(a.Blob) > 0 }

// Extension returns the filename extension without the leading dot.
func (a *Attachment) Extension() string {
	return strings.TrimPrefix(filepath.Ext(a.Filename), ".")
}

// HumanSize formats the byte size for display.
func (a *Attachment) HumanSize() string {
	switch {
	case a.ByteSize < 1024:
		return fmt.Sprintf("%d B", a.ByteSize)
	case a.ByteSize < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(a.ByteSize)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(a.ByteSize)/(1024*1024))
	}
}
