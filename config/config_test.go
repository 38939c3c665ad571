package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, err := Load()

	req.NoError(err)
	req.Equal(":8080", cfg.ServerAddr)
	req.Equal(2*time.Hour, cfg.ConnectionTTL)
	req.Equal(24*time.Hour, cfg.MessageRetention)
	req.Equal(20, cfg.HistoryLimit)
	req.Empty(cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("HISTORY_LIMIT", "50")
	t.Setenv("CONNECTION_TTL", "30m")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()

	req.NoError(err)
	req.Equal(50, cfg.HistoryLimit)
	req.Equal(30*time.Minute, cfg.ConnectionTTL)
	req.Equal("redis:6379", cfg.RedisAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "not an int", key: "HISTORY_LIMIT", value: "many"},
		{name: "zero history", key: "HISTORY_LIMIT", value: "0"},
		{name: "negative batch", key: "DISPATCH_BATCH_SIZE", value: "-1"},
		{name: "bad duration", key: "PUSH_TIMEOUT", value: "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	req := require.New(t)

	logger, err := NewLogger("chat-relay", "debug")
	req.NoError(err)
	req.NotNil(logger)

	_, err = NewLogger("chat-relay", "loud")
	req.Error(err)
}

func TestPingPeriodShorterThanPongWait(t *testing.T) {
	require.Less(t, PingPeriod, PongWait)
}
