package models

import (
	"fmt"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
)

const (
	MinContentLength = 1
	MaxContentLength = 150
)

// Message represents a persisted chat message. It is immutable once written.
type Message struct {
	ID           string    `json:"id"`           // Time-ordered UUIDv7
	Content      string    `json:"content"`      // 1..150 UTF-16 code units
	Sender       string    `json:"sender"`       // Copied from the connection at send time
	ConnectionID string    `json:"connectionId"` // Originating connection
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// ContentLength counts UTF-16 code units, so a character outside the Basic
// Multilingual Plane (most emoji) counts as two.
func ContentLength(content string) int {
	return len(utf16.Encode([]rune(content)))
}

// ValidateContent checks the content length bounds.
func ValidateContent(content string) error {
	n := ContentLength(content)
	switch {
	case n < MinContentLength:
		return NewValidationError(fmt.Sprintf("content must contain at least %d character(s)", MinContentLength))
	case n > MaxContentLength:
		return NewValidationError(fmt.Sprintf("content must contain at most %d character(s)", MaxContentLength))
	}
	return nil
}

// NewMessage validates content and assigns a sortable id.
func NewMessage(connectionID, content, sender string, now time.Time, retention time.Duration) (Message, error) {
	if err := ValidateContent(content); err != nil {
		return Message{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Message{}, fmt.Errorf("generate message id: %w", err)
	}
	return Message{
		ID:           id.String(),
		Content:      content,
		Sender:       sender,
		ConnectionID: connectionID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(retention),
	}, nil
}

func (m Message) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}
