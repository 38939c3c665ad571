package nats_service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/dispatcher"
	"github.com/karthikraju391/go-nats-chat-relay/models"
)

const (
	FanoutConsumer     = "fanout"
	DispatcherConsumer = "dispatcher"
)

// EventHandler processes one domain event. A returned error naks the event.
type EventHandler func(ctx context.Context, evt models.Event) error

type BatchProcessor interface {
	ProcessBatch(ctx context.Context, records []dispatcher.Record) dispatcher.BatchResponse
}

// ConsumeEvents feeds every new domain event to handler until ctx is done.
func (s *NatsService) ConsumeEvents(ctx context.Context, handler EventHandler) error {
	cons, err := s.js.CreateOrUpdateConsumer(ctx, s.cfg.EventsStream, jetstream.ConsumerConfig{
		Name:          FanoutConsumer,
		Durable:       FanoutConsumer,
		FilterSubject: s.subjects.AllEvents(),
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.cfg.AckWait,
		MaxDeliver:    s.cfg.MaxDeliver,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer '%s': %w", FanoutConsumer, err)
	}

	consumeCtx, err := cons.Consume(
		func(msg jetstream.Msg) { s.handleEvent(ctx, handler, msg) },
		jetstream.ConsumeErrHandler(func(_ jetstream.ConsumeContext, err error) {
			s.log.Warn("event consumer error", zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming from stream '%s': %w", s.cfg.EventsStream, err)
	}
	s.log.Info("consuming events", zap.String("subject", s.subjects.AllEvents()))

	<-ctx.Done()
	consumeCtx.Stop()
	return nil
}

func (s *NatsService) handleEvent(ctx context.Context, handler EventHandler, msg jetstream.Msg) {
	log := s.log.With(zap.String("subject", msg.Subject()))

	kind, ok := s.subjects.EventKind(msg.Subject())
	if !ok {
		log.Error("event on unexpected subject, terminating")
		ackOrLog(log, msg.Term())
		return
	}
	evt, err := models.DecodeEvent(kind, msg.Data())
	if err != nil {
		log.Error("undecodable event, terminating", zap.Error(err))
		ackOrLog(log, msg.Term())
		return
	}
	if err := handler(ctx, evt); err != nil {
		log.Error("event handling failed, requesting redelivery", zap.String("event_type", string(kind)), zap.Error(err))
		ackOrLog(log, msg.Nak())
		return
	}
	ackOrLog(log, msg.Ack())
}

// RunDeliveries pulls delivery tasks in batches and settles each message
// according to the dispatcher's verdict until ctx is done.
func (s *NatsService) RunDeliveries(ctx context.Context, batchSize int, maxWait time.Duration, processor BatchProcessor) error {
	cons, err := s.js.CreateOrUpdateConsumer(ctx, s.cfg.DeliveriesStream, jetstream.ConsumerConfig{
		Name:          DispatcherConsumer,
		Durable:       DispatcherConsumer,
		FilterSubject: s.subjects.Deliveries(),
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.cfg.AckWait,
		MaxDeliver:    s.cfg.MaxDeliver,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer '%s': %w", DispatcherConsumer, err)
	}
	s.log.Info("dispatching deliveries", zap.String("subject", s.subjects.Deliveries()), zap.Int("batch_size", batchSize))

	for ctx.Err() == nil {
		batch, err := cons.Fetch(batchSize, jetstream.FetchMaxWait(maxWait))
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.log.Warn("delivery fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(maxWait):
			}
			continue
		}

		var msgs []jetstream.Msg
		for msg := range batch.Messages() {
			msgs = append(msgs, msg)
		}
		if err := batch.Error(); err != nil {
			s.log.Debug("delivery batch ended early", zap.Error(err))
		}
		if len(msgs) > 0 {
			s.dispatchBatch(ctx, processor, msgs)
		}
	}
	return nil
}

func (s *NatsService) dispatchBatch(ctx context.Context, processor BatchProcessor, msgs []jetstream.Msg) {
	records := make([]dispatcher.Record, len(msgs))
	byID := make(map[string]jetstream.Msg, len(msgs))
	for i, msg := range msgs {
		id := recordID(msg, i)
		records[i] = dispatcher.Record{ID: id, Body: msg.Data()}
		byID[id] = msg
	}

	resp := processor.ProcessBatch(ctx, records)
	for _, res := range resp.Results {
		msg, ok := byID[res.ID]
		if !ok {
			continue
		}
		ackOrLog(s.log.With(zap.String("record_id", res.ID)), settle(msg, res.Outcome))
	}
	if len(resp.ItemFailures) > 0 {
		s.log.Warn("delivery batch partially failed",
			zap.Int("batch_size", len(msgs)),
			zap.Strings("item_failures", resp.ItemFailures),
		)
	}
}

// recordID uses the stream sequence, falling back to the batch position.
func recordID(msg jetstream.Msg, pos int) string {
	if md, err := msg.Metadata(); err == nil && md != nil {
		return strconv.FormatUint(md.Sequence.Stream, 10)
	}
	return "batch-" + strconv.Itoa(pos)
}

// settle acks handled records, terminates unprocessable ones and naks the rest.
func settle(msg jetstream.Msg, outcome dispatcher.Outcome) error {
	switch outcome {
	case dispatcher.OutcomeDelivered, dispatcher.OutcomeStale:
		return msg.Ack()
	case dispatcher.OutcomeDropped:
		return msg.Term()
	default:
		return msg.Nak()
	}
}

func ackOrLog(log *zap.Logger, err error) {
	if err != nil {
		log.Warn("failed to settle message", zap.Error(err))
	}
}
