package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Alert is a message issued by an authority to the public dashboard.
type Alert struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	CreatedBy string `json:"createdBy"`
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
}

// NewAlert trims and validates the input and stamps the alert with a fresh
// ID and the current domain clock time.
func NewAlert(message, createdBy string) (Alert, error) {
	message = strings.TrimSpace(message)
	createdBy = strings.TrimSpace(createdBy)
	if message == "" {
		return Alert{}, fmt.Errorf("%w: message is empty", ErrInvalidAlert)
	}
	if createdBy == "" {
		return Alert{}, fmt.Errorf("%w: createdBy is empty", ErrInvalidAlert)
	}
	return Alert{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedBy: createdBy,
		Timestamp: clock.Now().UnixMilli(),
	}, nil
}
