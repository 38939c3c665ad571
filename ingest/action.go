package ingest

import "github.com/karthikraju391/go-nats-chat-relay/models"

type EventType string

const (
	EventConnect    EventType = "CONNECT"
	EventDisconnect EventType = "DISCONNECT"
	EventMessage    EventType = "MESSAGE"
)

// Action is the resolved kind of an inbound request.
type Action int

const (
	ActionUnsupported Action = iota
	ActionConnect
	ActionDisconnect
	ActionSendMessage
	ActionSystemMessage
	ActionReceiveMessage
	ActionDefault
)

func (a Action) String() string {
	switch a {
	case ActionConnect:
		return "connect"
	case ActionDisconnect:
		return "disconnect"
	case ActionSendMessage:
		return "send_message"
	case ActionSystemMessage:
		return "system_message"
	case ActionReceiveMessage:
		return "receive_message"
	case ActionDefault:
		return "default"
	default:
		return "unsupported"
	}
}

type actionKey struct {
	eventType EventType
	routeKey  models.RouteKey
}

var actions = map[actionKey]Action{
	{EventConnect, models.RouteConnect}:        ActionConnect,
	{EventDisconnect, models.RouteDisconnect}:  ActionDisconnect,
	{EventMessage, models.RouteSendMessage}:    ActionSendMessage,
	{EventMessage, models.RouteSystemMessage}:  ActionSystemMessage,
	{EventMessage, models.RouteReceiveMessage}: ActionReceiveMessage,
}

// ResolveAction maps an (eventType, routeKey) pair to an action. The default
// route matches any event type; every other unmatched pair is unsupported.
func ResolveAction(eventType EventType, routeKey models.RouteKey) Action {
	if a, ok := actions[actionKey{eventType, routeKey}]; ok {
		return a
	}
	if routeKey == models.RouteDefault {
		return ActionDefault
	}
	return ActionUnsupported
}
