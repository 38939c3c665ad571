// Package config loads the relay configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Websocket protocol settings shared by the gateway read and write pumps.
const (
	MaxMessageSize = 4096
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	SendQueueSize  = 256
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"chat-relay"`
	ServerAddr  string `env:"SERVER_ADDR" envDefault:":8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	NatsURL          string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	EventsStream     string `env:"STREAM_EVENTS" envDefault:"CHAT_EVENTS"`
	DeliveriesStream string `env:"STREAM_DELIVERIES" envDefault:"CHAT_DELIVERIES"`
	SubjectPrefix    string `env:"SUBJECT_PREFIX" envDefault:"chat"`

	BadgerPath     string `env:"BADGER_PATH" envDefault:"./data/badger"`
	BadgerInMemory bool   `env:"BADGER_IN_MEMORY" envDefault:"false"`
	// RedisAddr switches the connection registry to redis when set.
	RedisAddr string `env:"REDIS_ADDR"`

	ConnectionTTL    time.Duration `env:"CONNECTION_TTL" envDefault:"2h"`
	MessageRetention time.Duration `env:"MESSAGE_RETENTION" envDefault:"24h"`
	HistoryLimit     int           `env:"HISTORY_LIMIT" envDefault:"20"`

	DispatchBatchSize   int           `env:"DISPATCH_BATCH_SIZE" envDefault:"25"`
	DispatchConcurrency int           `env:"DISPATCH_CONCURRENCY" envDefault:"8"`
	DispatchMaxWait     time.Duration `env:"DISPATCH_MAX_WAIT" envDefault:"1s"`
	AckWait             time.Duration `env:"ACK_WAIT" envDefault:"30s"`
	MaxDeliver          int           `env:"MAX_DELIVER" envDefault:"5"`
	PushTimeout         time.Duration `env:"PUSH_TIMEOUT" envDefault:"5s"`
	OperationTimeout    time.Duration `env:"OPERATION_TIMEOUT" envDefault:"5s"`
	GCInterval          time.Duration `env:"GC_INTERVAL" envDefault:"5m"`
}

// Load parses the process environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.DispatchBatchSize <= 0 {
		return fmt.Errorf("DISPATCH_BATCH_SIZE must be positive, got %d", c.DispatchBatchSize)
	}
	if c.DispatchConcurrency <= 0 {
		return fmt.Errorf("DISPATCH_CONCURRENCY must be positive, got %d", c.DispatchConcurrency)
	}
	if c.ConnectionTTL <= 0 || c.MessageRetention <= 0 {
		return fmt.Errorf("CONNECTION_TTL and MESSAGE_RETENTION must be positive")
	}
	return nil
}
