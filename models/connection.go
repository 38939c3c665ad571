package models

import "time"

// Connection is the registry record of one live websocket session.
type Connection struct {
	ID        string    `json:"id"`        // Opaque, stable for the socket lifetime
	Sender    string    `json:"sender"`    // Display name derived from ID
	ClientID  *string   `json:"clientId"`  // Optional, supplied by the caller on connect
	CreatedAt time.Time `json:"createdAt"` // Registration time
	ExpiresAt time.Time `json:"expiresAt"` // Absolute TTL
}

func NewConnection(id, sender string, clientID *string, now time.Time, ttl time.Duration) Connection {
	return Connection{
		ID:        id,
		Sender:    sender,
		ClientID:  clientID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the record is logically absent at now.
func (c Connection) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
