package models

import (
	"encoding/json"
	"fmt"
)

// DeliveryMessage is the client-facing body of a delivery task.
type DeliveryMessage struct {
	Action    RouteKey `json:"action"`
	Sender    string   `json:"sender"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
}

// DeliveryTask asks the dispatcher to push one message to one connection.
type DeliveryTask struct {
	ConnectionID string          `json:"connectionId"`
	Message      DeliveryMessage `json:"message"`
}

// PushPayload is the frame written to the target socket.
type PushPayload struct {
	DeliveryMessage
	ConnectionID string `json:"connectionId"`
}

// DecodeDeliveryTask parses a queued task. Every failure wraps ErrMalformedPayload
// because retrying the same bytes can never succeed.
func DecodeDeliveryTask(data []byte) (DeliveryTask, error) {
	if len(data) == 0 {
		return DeliveryTask{}, fmt.Errorf("empty payload: %w", ErrMalformedPayload)
	}
	var task DeliveryTask
	if err := json.Unmarshal(data, &task); err != nil {
		return DeliveryTask{}, fmt.Errorf("decode task: %v: %w", err, ErrMalformedPayload)
	}
	if task.ConnectionID == "" {
		return DeliveryTask{}, fmt.Errorf("connectionId missing: %w", ErrMalformedPayload)
	}
	return task, nil
}

// Payload renders the frame pushed to the target connection.
func (t DeliveryTask) Payload() ([]byte, error) {
	return json.Marshal(PushPayload{DeliveryMessage: t.Message, ConnectionID: t.ConnectionID})
}
