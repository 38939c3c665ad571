package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/models"
)

const scanBatch = 100

// Redis stores connection records as plain keys; SET NX EX gives the conditional
// write and redis reclaims expired keys itself.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
	now    func() time.Time
}

func NewRedis(client *redis.Client, log *zap.Logger) *Redis {
	return &Redis{client: client, log: log, now: time.Now}
}

func (r *Redis) Create(ctx context.Context, connectionID string, clientID *string, ttl time.Duration) (models.Connection, error) {
	conn, data, err := newRecord(connectionID, clientID, r.now(), ttl)
	if err != nil {
		return models.Connection{}, err
	}
	created, err := r.client.SetNX(ctx, key(connectionID), data, ttl).Result()
	if err != nil {
		return models.Connection{}, fmt.Errorf("create connection %s: %w", connectionID, err)
	}
	if !created {
		return models.Connection{}, alreadyExists(connectionID)
	}
	r.log.Debug("connection record created", zap.String("connection_id", connectionID), zap.Time("expires_at", conn.ExpiresAt))
	return conn, nil
}

func (r *Redis) Get(ctx context.Context, connectionID string) (models.Connection, error) {
	data, err := r.client.Get(ctx, key(connectionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Connection{}, notFound(connectionID)
	}
	if err != nil {
		return models.Connection{}, fmt.Errorf("get connection %s: %w", connectionID, err)
	}
	conn, err := decode(data)
	if err != nil {
		return models.Connection{}, err
	}
	if conn.Expired(r.now()) {
		return models.Connection{}, notFound(connectionID)
	}
	return conn, nil
}

func (r *Redis) Delete(ctx context.Context, connectionID string) error {
	if err := r.client.Del(ctx, key(connectionID)).Err(); err != nil {
		return fmt.Errorf("delete connection %s: %w", connectionID, err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]models.Connection, error) {
	now := r.now()
	var (
		out    []models.Connection
		cursor uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("list connections: %w", err)
		}
		if len(keys) > 0 {
			values, err := r.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("list connections: %w", err)
			}
			for i, v := range values {
				// Keys can expire between SCAN and MGET.
				s, ok := v.(string)
				if !ok {
					continue
				}
				conn, err := decode([]byte(s))
				if err != nil {
					r.log.Warn("skipping unreadable connection record", zap.String("key", keys[i]), zap.Error(err))
					continue
				}
				if !conn.Expired(now) {
					out = append(out, conn)
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}
