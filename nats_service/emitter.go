package nats_service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/metrics"
	"github.com/karthikraju391/go-nats-chat-relay/models"
)

// Emit publishes a domain event. MessageSent events carry the message id as
// the JetStream message id so publisher retries are deduplicated.
func (s *NatsService) Emit(ctx context.Context, evt models.Event) error {
	subject := s.subjects.Event(evt.Kind())
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", evt.Kind(), err)
	}

	var opts []jetstream.PublishOpt
	if sent, ok := evt.(models.MessageSent); ok {
		opts = append(opts, jetstream.WithMsgID(sent.MessageID))
	}

	ack, err := s.js.Publish(ctx, subject, data, opts...)
	if err != nil {
		return fmt.Errorf("failed to publish event to subject '%s': %w", subject, err)
	}
	metrics.EventsEmittedTotal.WithLabelValues(string(evt.Kind())).Inc()
	s.log.Debug("event published",
		zap.String("subject", subject),
		zap.Uint64("sequence", ack.Sequence),
		zap.Bool("duplicate", ack.Duplicate),
	)
	return nil
}

// PublishDelivery queues one delivery task for the dispatcher.
func (s *NatsService) PublishDelivery(ctx context.Context, task models.DeliveryTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery task: %w", err)
	}
	subject := s.subjects.Deliveries()
	if _, err := s.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish delivery to subject '%s': %w", subject, err)
	}
	return nil
}
