package service_test

import (
	"sync"
	"time"

	appErrors "github.com/mailtrace/mailtrace-backend/internal/errors"
	"github.com/mailtrace/mailtrace-backend/internal/model"
	"github.com/mailtrace/mailtrace-backend/internal/repository"
)

// --- Mock Repositories ---

// MockEmailRepo stores emails in memory
type MockEmailRepo struct {
	mu       sync.Mutex
	nextID   int64
	emails   map[int64]*model.Email
	captured []*model.Attachment
}

func NewMockEmailRepo() *MockEmailRepo {
	return &MockEmailRepo{nextID: 1, emails: map[int64]*model.Email{}}
}

func (m *MockEmailRepo) CreateCapture(email *model.Email, attachments []*model.Attachment, initial *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email.ID = m.nextID
	m.nextID++
	m.emails[email.ID] = email
	for _, att := range attachments {
		att.EmailID = email.ID
		m.captured = append(m.captured, att)
	}
	if initial != nil {
		initial.EmailID = email.ID
	}
	return nil
}

func (m *MockEmailRepo) GetByID(id int64) (*model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if email, ok := m.emails[id]; ok {
		return email, nil
	}
	return nil, appErrors.NewEmailNotFound(id)
}

func (m *MockEmailRepo) GetByMessageID(messageID string) (*model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, email := range m.emails {
		if email.MessageID != nil && *email.MessageID == messageID {
			return email, nil
		}
	}
	return nil, nil
}

func (m *MockEmailRepo) ListEmails(offset, limit int, filter repository.ListFilter) ([]*model.Email, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []*model.Email{}
	for _, email := range m.emails {
		all = append(all, email)
	}
	total := len(all)
	if offset >= total {
		return []*model.Email{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MockEmailRepo) UpdateStatus(id int64, status string, deliveredAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if email, ok := m.emails[id]; ok {
		email.Status = status
		if deliveredAt != nil {
			email.DeliveredAt = deliveredAt
		}
	}
	return nil
}

func (m *MockEmailRepo) MarkSent(id int64, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if email, ok := m.emails[id]; ok {
		email.Status = model.StatusSent
		email.SentAt = &sentAt
	}
	return nil
}

func (m *MockEmailRepo) Archive(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if email, ok := m.emails[id]; ok {
		now := time.Now()
		email.ArchivedAt = &now
	}
	return nil
}

func (m *MockEmailRepo) Unarchive(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if email, ok := m.emails[id]; ok {
		email.ArchivedAt = nil
	}
	return nil
}

func (m *MockEmailRepo) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.emails, id)
	return nil
}

var _ repository.EmailRepositoryInterface = (*MockEmailRepo)(nil)

// MockAttachmentRepo records which content hashes already have a payload
type MockAttachmentRepo struct {
	stored map[string]bool
}

func (m *MockAttachmentRepo) GetByID(id int64) (*model.Attachment, error) { return nil, nil }
func (m *MockAttachmentRepo) ListByEmail(emailID int64) ([]*model.Attachment, error) {
	return []*model.Attachment{}, nil
}
func (m *MockAttachmentRepo) HasStoredPayload(contentHash string) (bool, error) {
	return m.stored[contentHash], nil
}
func (m *MockAttachmentRepo) ResolvePayload(att *model.Attachment) ([]byte, error) {
	return att.Blob, nil
}

var _ repository.AttachmentRepositoryInterface = (*MockAttachmentRepo)(nil)

// MockEventRepo appends events in memory
type MockEventRepo struct {
	mu     sync.Mutex
	events []*model.Event
}

func (m *MockEventRepo) Create(event *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventRepo) ListByEmail(emailID int64) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Event{}
	for _, e := range m.events {
		if e.EmailID == emailID {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ repository.EventRepositoryInterface = (*MockEventRepo)(nil)

// MockQueue records published jobs
type MockQueue struct {
	published map[string][]any
}

func (m *MockQueue) Publish(topic string, payload any) error {
	if m.published == nil {
		m.published = map[string][]any{}
	}
	m.published[topic] = append(m.published[topic], payload)
	return nil
}

func (m *MockQueue) Subscribe(topic string, handler func(payload any) error) error { return nil }
