// Package registry keeps the TTL-bounded connection records.
//
// Create is a conditional write: the first writer for a connection id wins and
// every later writer gets models.ErrAlreadyExists until the record is deleted
// or expires. Readers treat expired records as absent even before the backing
// store reclaims them.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/karthikraju391/go-nats-chat-relay/models"
	"github.com/karthikraju391/go-nats-chat-relay/sender"
)

const keyPrefix = "conn:"

// Registry stores live connections. Create is first-writer-wins and readers
// treat an expired record as absent.
type Registry interface {
	Create(ctx context.Context, connectionID string, clientID *string, ttl time.Duration) (models.Connection, error)
	Get(ctx context.Context, connectionID string) (models.Connection, error)
	Delete(ctx context.Context, connectionID string) error
	List(ctx context.Context) ([]models.Connection, error)
}

func key(connectionID string) string {
	return keyPrefix + connectionID
}

// newRecord builds the record to store and its encoded form.
func newRecord(connectionID string, clientID *string, now time.Time, ttl time.Duration) (models.Connection, []byte, error) {
	if connectionID == "" {
		return models.Connection{}, nil, models.NewValidationError("connection id is required")
	}
	if ttl <= 0 {
		return models.Connection{}, nil, models.NewValidationError("ttl must be positive")
	}
	conn := models.NewConnection(connectionID, sender.Generate(connectionID), clientID, now, ttl)
	data, err := json.Marshal(conn)
	if err != nil {
		return models.Connection{}, nil, fmt.Errorf("encode connection %s: %w", connectionID, err)
	}
	return conn, data, nil
}

func decode(data []byte) (models.Connection, error) {
	var conn models.Connection
	if err := json.Unmarshal(data, &conn); err != nil {
		return models.Connection{}, fmt.Errorf("decode connection: %w", err)
	}
	return conn, nil
}

func notFound(connectionID string) error {
	return fmt.Errorf("connection %s: %w", connectionID, models.ErrNotFound)
}

func alreadyExists(connectionID string) error {
	return fmt.Errorf("connection %s: %w", connectionID, models.ErrAlreadyExists)
}
