package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RouteKey names an action on the websocket gateway.
type RouteKey string

const (
	RouteConnect        RouteKey = "$connect"
	RouteDisconnect     RouteKey = "$disconnect"
	RouteDefault        RouteKey = "$default"
	RouteSendMessage    RouteKey = "sendMessage"
	RouteSystemMessage  RouteKey = "systemMessage"
	RouteReceiveMessage RouteKey = "receiveMessage"
)

type EventKind string

const (
	KindConnectionEstablished EventKind = "connection_established"
	KindConnectionClosed      EventKind = "connection_closed"
	KindMessageSent           EventKind = "message_sent"
)

// Event is a domain event published after a registry or store mutation.
type Event interface {
	Kind() EventKind
}

type ConnectionEstablished struct {
	ConnectionID string    `json:"connectionId"`
	Sender       string    `json:"sender"`
	ClientID     *string   `json:"clientId"`
	Action       RouteKey  `json:"action"`
	Timestamp    time.Time `json:"timestamp"`
}

func (ConnectionEstablished) Kind() EventKind { return KindConnectionEstablished }

type ConnectionClosed struct {
	ConnectionID string    `json:"connectionId"`
	Sender       string    `json:"sender"`
	ClientID     *string   `json:"clientId"`
	Action       RouteKey  `json:"action"`
	Timestamp    time.Time `json:"timestamp"`
}

func (ConnectionClosed) Kind() EventKind { return KindConnectionClosed }

type MessageSent struct {
	Action       RouteKey  `json:"action"`
	Content      string    `json:"content"`
	Sender       string    `json:"sender"`
	MessageID    string    `json:"messageId"`
	ClientID     *string   `json:"clientId"`
	ConnectionID string    `json:"connectionId"`
	Timestamp    time.Time `json:"timestamp"`
}

func (MessageSent) Kind() EventKind { return KindMessageSent }

// DecodeEvent rebuilds an event from its kind and JSON body.
func DecodeEvent(kind EventKind, data []byte) (Event, error) {
	var (
		evt Event
		err error
	)
	switch kind {
	case KindConnectionEstablished:
		var e ConnectionEstablished
		err = json.Unmarshal(data, &e)
		evt = e
	case KindConnectionClosed:
		var e ConnectionClosed
		err = json.Unmarshal(data, &e)
		evt = e
	case KindMessageSent:
		var e MessageSent
		err = json.Unmarshal(data, &e)
		evt = e
	default:
		return nil, fmt.Errorf("unknown event kind %q: %w", kind, ErrMalformedPayload)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", kind, err, ErrMalformedPayload)
	}
	return evt, nil
}
