package nats_service

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const streamRetention = 24 * time.Hour

type Config struct {
	URL              string
	EventsStream     string
	DeliveriesStream string
	SubjectPrefix    string
	AckWait          time.Duration
	MaxDeliver       int
}

type NatsService struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	cfg      Config
	subjects Subjects
	log      *zap.Logger
}

// NewNatsService connects to NATS and makes sure both streams exist.
func NewNatsService(ctx context.Context, cfg Config, log *zap.Logger) (*NatsService, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	s := &NatsService{nc: nc, js: js, cfg: cfg, subjects: NewSubjects(cfg.SubjectPrefix), log: log}
	if err := s.ensureStreams(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return s, nil
}

func (s *NatsService) ensureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        s.cfg.EventsStream,
			Description: "Chat domain events",
			Subjects:    []string{s.subjects.AllEvents()},
			MaxAge:      streamRetention,
			Storage:     jetstream.FileStorage,
		},
		{
			Name:        s.cfg.DeliveriesStream,
			Description: "Pending per-connection deliveries",
			Subjects:    []string{s.subjects.Deliveries()},
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      streamRetention,
			Storage:     jetstream.FileStorage,
		},
	}
	for _, cfg := range streams {
		stream, err := s.js.CreateOrUpdateStream(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create stream '%s': %w", cfg.Name, err)
		}
		s.log.Info("stream ready",
			zap.String("stream", stream.CachedInfo().Config.Name),
			zap.Strings("subjects", cfg.Subjects),
		)
	}
	return nil
}

// IsConnected reports whether the underlying connection is currently up.
func (s *NatsService) IsConnected() bool {
	return s.nc != nil && s.nc.IsConnected()
}

// Close drains pending publishes and subscriptions, then closes the connection.
func (s *NatsService) Close() {
	if s.nc == nil {
		return
	}
	if err := s.nc.Drain(); err != nil {
		s.log.Warn("nats drain failed", zap.Error(err))
		s.nc.Close()
	}
}
