// Package dispatcher pushes queued delivery tasks to their target connections.
//
// Each record in a batch is handled in isolation: a gone target is dropped
// silently, a malformed record is dropped loudly, and only transport failures
// are reported back to the batch source for redelivery.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/karthikraju391/go-nats-chat-relay/metrics"
	"github.com/karthikraju391/go-nats-chat-relay/models"
)

// Outcome is how a single delivery record ended.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeStale     Outcome = "stale"   // target gone, handled without redelivery
	OutcomeDropped   Outcome = "dropped" // payload can never be processed
	OutcomeFailed    Outcome = "failed"  // retryable
)

// Transport pushes a payload to one open connection. It must return an error
// wrapping models.ErrStaleTarget when the connection no longer exists.
type Transport interface {
	Push(ctx context.Context, connectionID string, payload []byte) error
}

// Record is one queued delivery task as handed over by the batch source.
type Record struct {
	ID   string
	Body []byte
}

// Result is the outcome of one record in a batch.
type Result struct {
	ID      string
	Outcome Outcome
	Err     error
}

// BatchResponse partitions a batch. ItemFailures lists the ids the source must redeliver.
type BatchResponse struct {
	Results      []Result
	ItemFailures []string
}

type Options struct {
	Concurrency int
	PushTimeout time.Duration
}

type Dispatcher struct {
	transport Transport
	log       *zap.Logger
	opts      Options
}

// New returns a Dispatcher pushing through transport. Concurrency below 1 means 1.
func New(transport Transport, log *zap.Logger, opts Options) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Dispatcher{transport: transport, log: log, opts: opts}
}

// ProcessBatch handles every record and reports which ones need redelivery.
// A failing record never cancels its siblings.
func (d *Dispatcher) ProcessBatch(ctx context.Context, records []Record) BatchResponse {
	results := make([]Result, len(records))

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for i, rec := range records {
		g.Go(func() error {
			results[i] = d.HandleRecord(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()

	resp := BatchResponse{Results: results}
	for _, r := range results {
		if r.Outcome == OutcomeFailed {
			resp.ItemFailures = append(resp.ItemFailures, r.ID)
		}
	}
	return resp
}

// HandleRecord decodes one task and pushes it to its target.
func (d *Dispatcher) HandleRecord(ctx context.Context, rec Record) Result {
	start := time.Now()
	res := d.handle(ctx, rec)
	metrics.DeliveriesTotal.WithLabelValues(string(res.Outcome)).Inc()
	metrics.DeliveryDuration.Observe(time.Since(start).Seconds())
	return res
}

func (d *Dispatcher) handle(ctx context.Context, rec Record) Result {
	log := d.log.With(zap.String("record_id", rec.ID))

	task, err := models.DecodeDeliveryTask(rec.Body)
	if err != nil {
		log.Error("dropping malformed delivery task", zap.Error(err))
		return Result{ID: rec.ID, Outcome: OutcomeDropped, Err: err}
	}
	log = log.With(zap.String("connection_id", task.ConnectionID))

	payload, err := task.Payload()
	if err != nil {
		err = fmt.Errorf("render payload: %v: %w", err, models.ErrMalformedPayload)
		log.Error("dropping unrenderable delivery task", zap.Error(err))
		return Result{ID: rec.ID, Outcome: OutcomeDropped, Err: err}
	}

	pushCtx := ctx
	if d.opts.PushTimeout > 0 {
		var cancel context.CancelFunc
		pushCtx, cancel = context.WithTimeout(ctx, d.opts.PushTimeout)
		defer cancel()
	}

	err = d.transport.Push(pushCtx, task.ConnectionID, payload)
	switch {
	case err == nil:
		log.Info("message delivered", zap.String("route_key", string(task.Message.Action)))
		return Result{ID: rec.ID, Outcome: OutcomeDelivered}
	case errors.Is(err, models.ErrStaleTarget):
		log.Warn("target connection gone, skipping delivery", zap.Error(err))
		return Result{ID: rec.ID, Outcome: OutcomeStale}
	default:
		log.Error("delivery failed", zap.Error(err))
		return Result{ID: rec.ID, Outcome: OutcomeFailed, Err: fmt.Errorf("push to %s: %w", task.ConnectionID, err)}
	}
}
