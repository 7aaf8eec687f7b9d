package email

import (
	"errors"
	"fmt"
)

var (
	ErrNoRecipient     = errors.New("email has no recipient")
	ErrSMTPUnavailable = errors.New("smtp server unavailable")
)

// SendError is a failed delivery of one record.
type SendError struct {
	EmailID string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send email %s: %v", e.EmailID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
