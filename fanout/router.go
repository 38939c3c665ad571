// Package fanout turns domain events into one delivery task per target
// connection and queues them for the dispatcher.
package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/models"
)

const (
	SystemSender = "System"

	// Matches the browser's Date.toISOString output.
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

type ConnectionLister interface {
	List(ctx context.Context) ([]models.Connection, error)
}

type Publisher interface {
	PublishDelivery(ctx context.Context, task models.DeliveryTask) error
}

type Router struct {
	connections ConnectionLister
	publisher   Publisher
	log         *zap.Logger
}

func NewRouter(connections ConnectionLister, publisher Publisher, log *zap.Logger) *Router {
	return &Router{connections: connections, publisher: publisher, log: log}
}

// Route builds the delivery tasks for evt: every live connection except the
// one that caused the event receives a copy.
func (r *Router) Route(ctx context.Context, evt models.Event) ([]models.DeliveryTask, error) {
	origin, msg, err := deliveryMessage(evt)
	if err != nil {
		return nil, err
	}

	conns, err := r.connections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	targets := lo.Filter(conns, func(c models.Connection, _ int) bool {
		return c.ID != origin
	})
	return lo.Map(targets, func(c models.Connection, _ int) models.DeliveryTask {
		return models.DeliveryTask{ConnectionID: c.ID, Message: msg}
	}), nil
}

// Handle routes evt and publishes every task. Any publish failure fails the
// whole event so it is redelivered; targets already queued may then see a
// duplicate.
func (r *Router) Handle(ctx context.Context, evt models.Event) error {
	tasks, err := r.Route(ctx, evt)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if err := r.publisher.PublishDelivery(ctx, task); err != nil {
			return fmt.Errorf("queue delivery for %s: %w", task.ConnectionID, err)
		}
	}
	r.log.Debug("event fanned out",
		zap.String("event_type", string(evt.Kind())),
		zap.Int("targets", len(tasks)),
	)
	return nil
}

func deliveryMessage(evt models.Event) (string, models.DeliveryMessage, error) {
	switch e := evt.(type) {
	case models.MessageSent:
		return e.ConnectionID, models.DeliveryMessage{
			Action:    models.RouteReceiveMessage,
			Sender:    e.Sender,
			Content:   e.Content,
			Timestamp: formatTimestamp(e.Timestamp),
		}, nil
	case models.ConnectionEstablished:
		return e.ConnectionID, systemMessage(e.Sender+" joined the chat", e.Timestamp), nil
	case models.ConnectionClosed:
		return e.ConnectionID, systemMessage(e.Sender+" left the chat", e.Timestamp), nil
	default:
		return "", models.DeliveryMessage{}, fmt.Errorf("event %T: %w", evt, models.ErrUnsupportedAction)
	}
}

func systemMessage(content string, at time.Time) models.DeliveryMessage {
	return models.DeliveryMessage{
		Action:    models.RouteSystemMessage,
		Sender:    SystemSender,
		Content:   content,
		Timestamp: formatTimestamp(at),
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
