// Package ingest validates inbound client actions and drives the registry,
// the message store and the event emitter.
package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/models"
)

type Registry interface {
	Create(ctx context.Context, connectionID string, clientID *string, ttl time.Duration) (models.Connection, error)
	Get(ctx context.Context, connectionID string) (models.Connection, error)
	Delete(ctx context.Context, connectionID string) error
}

type Store interface {
	Append(ctx context.Context, connectionID, content, sender string) (models.Message, error)
}

type Emitter interface {
	Emit(ctx context.Context, evt models.Event) error
}

// Options bound the records and calls the handler makes.
type Options struct {
	ConnectionTTL    time.Duration
	OperationTimeout time.Duration
}

// Handler runs the connection lifecycle against the registry, the message
// store and the event emitter.
type Handler struct {
	registry Registry
	store    Store
	emitter  Emitter
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

// NewHandler returns a Handler; OperationTimeout of zero means no deadline.
func NewHandler(registry Registry, store Store, emitter Emitter, log *zap.Logger, opts Options) *Handler {
	return &Handler{
		registry: registry,
		store:    store,
		emitter:  emitter,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// Connect registers a new connection and announces it. A duplicate connect
// for a live id fails. If the announcement fails the record is kept.
func (h *Handler) Connect(ctx context.Context, connectionID string, clientID *string) (models.Connection, error) {
	log := h.log.With(zap.String("connection_id", connectionID))

	conn, err := h.registry.Create(ctx, connectionID, clientID, h.opts.ConnectionTTL)
	if err != nil {
		log.Error("error creating connection", zap.Error(err))
		return models.Connection{}, models.NewIntegrationError("Error creating connection", err)
	}
	log.Info("connection created", zap.String("sender", conn.Sender), zap.Time("expires_at", conn.ExpiresAt))

	err = h.emitter.Emit(ctx, models.ConnectionEstablished{
		ConnectionID: conn.ID,
		Sender:       conn.Sender,
		ClientID:     conn.ClientID,
		Action:       models.RouteConnect,
		Timestamp:    h.now().UTC(),
	})
	if err != nil {
		log.Error("error sending event", zap.String("event_type", string(models.KindConnectionEstablished)), zap.Error(err))
		return conn, models.NewIntegrationError("Error sending event", err)
	}
	return conn, nil
}

// Disconnect removes a previously established connection and announces it
// with the sender captured before deletion.
func (h *Handler) Disconnect(ctx context.Context, connectionID string) (models.Connection, error) {
	log := h.log.With(zap.String("connection_id", connectionID))

	conn, err := h.registry.Get(ctx, connectionID)
	if errors.Is(err, models.ErrNotFound) {
		log.Error("connection not found")
		return models.Connection{}, models.NewIntegrationError("Connection not found", err)
	}
	if err != nil {
		log.Error("error fetching connection", zap.Error(err))
		return models.Connection{}, models.NewIntegrationError("Error deleting connection", err)
	}

	if err := h.registry.Delete(ctx, connectionID); err != nil {
		log.Error("error deleting connection", zap.Error(err))
		return models.Connection{}, models.NewIntegrationError("Error deleting connection", err)
	}
	log.Info("connection deleted")

	err = h.emitter.Emit(ctx, models.ConnectionClosed{
		ConnectionID: conn.ID,
		Sender:       conn.Sender,
		ClientID:     conn.ClientID,
		Action:       models.RouteDisconnect,
		Timestamp:    h.now().UTC(),
	})
	if err != nil {
		log.Error("error sending event", zap.String("event_type", string(models.KindConnectionClosed)), zap.Error(err))
		return conn, models.NewIntegrationError("Error deleting connection", err)
	}
	return conn, nil
}

// SendMessage persists a message attributed to the connection's sender and
// announces it. Invalid content fails before any side effect.
func (h *Handler) SendMessage(ctx context.Context, connectionID, content string) (models.Message, error) {
	if err := models.ValidateContent(content); err != nil {
		return models.Message{}, err
	}
	log := h.log.With(zap.String("connection_id", connectionID))

	conn, err := h.registry.Get(ctx, connectionID)
	if errors.Is(err, models.ErrNotFound) {
		log.Error("connection not found")
		return models.Message{}, models.NewIntegrationError("Connection not found", err)
	}
	if err != nil {
		log.Error("error fetching connection", zap.Error(err))
		return models.Message{}, models.NewIntegrationError("Error sending message", err)
	}

	msg, err := h.store.Append(ctx, connectionID, content, conn.Sender)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return models.Message{}, err
		}
		log.Error("error storing message", zap.Error(err))
		return models.Message{}, models.NewIntegrationError("Error sending message", err)
	}

	err = h.emitter.Emit(ctx, models.MessageSent{
		Action:       models.RouteSendMessage,
		Content:      msg.Content,
		Sender:       msg.Sender,
		MessageID:    msg.ID,
		ClientID:     conn.ClientID,
		ConnectionID: msg.ConnectionID,
		Timestamp:    h.now().UTC(),
	})
	if err != nil {
		log.Error("error sending event", zap.String("message_id", msg.ID), zap.Error(err))
		return msg, models.NewIntegrationError("Error sending message", err)
	}
	log.Info("message sent", zap.String("message_id", msg.ID), zap.String("sender", msg.Sender))
	return msg, nil
}
