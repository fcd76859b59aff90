// internal/errors/errors.go
package appErrors

import "fmt"

// ErrEmailNotFound is a sentinel error
type ErrEmailNotFound struct {
	EmailID int64
}

func (e *ErrEmailNotFound) Error() string {
	return fmt.Sprintf("email with ID %d not found", e.EmailID)
}

// Helper constructor
func NewEmailNotFound(id int64) error {
	return &ErrEmailNotFound{EmailID: id}
}

// ErrUnknownProvider signals a webhook routing key with no configured adapter.
type ErrUnknownProvider struct {
	Provider string
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unknown webhook provider: %s", e.Provider)
}

func NewUnknownProvider(name string) error {
	return &ErrUnknownProvider{Provider: name}
}

// ErrInvalidSignature signals a webhook payload that failed verification.
type ErrInvalidSignature struct {
	Provider string
}

func (e *ErrInvalidSignature) Error() string {
	return fmt.Sprintf("invalid webhook signature for provider %s", e.Provider)
}

func NewInvalidSignature(name string) error {
	return &ErrInvalidSignature{Provider: name}
}
