package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/models"
)

// Badger stores connection records in the embedded database with a per-entry TTL.
type Badger struct {
	db  *badger.DB
	log *zap.Logger
	now func() time.Time
}

func NewBadger(db *badger.DB, log *zap.Logger) *Badger {
	return &Badger{db: db, log: log, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (r *Badger) WithClock(now func() time.Time) *Badger {
	r.now = now
	return r
}

func (r *Badger) Create(ctx context.Context, connectionID string, clientID *string, ttl time.Duration) (models.Connection, error) {
	if err := ctx.Err(); err != nil {
		return models.Connection{}, err
	}
	now := r.now()
	conn, data, err := newRecord(connectionID, clientID, now, ttl)
	if err != nil {
		return models.Connection{}, err
	}

	k := []byte(key(connectionID))
	err = r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		switch {
		case err == nil:
			existing, err := r.decodeItem(item)
			if err != nil {
				return err
			}
			if !existing.Expired(now) {
				return alreadyExists(connectionID)
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.SetEntry(badger.NewEntry(k, data).WithTTL(ttl))
	})
	switch {
	case err == nil:
		r.log.Debug("connection record created", zap.String("connection_id", connectionID), zap.Time("expires_at", conn.ExpiresAt))
		return conn, nil
	case errors.Is(err, badger.ErrConflict):
		// A concurrent creator committed first.
		return models.Connection{}, alreadyExists(connectionID)
	case errors.Is(err, models.ErrAlreadyExists):
		return models.Connection{}, err
	default:
		return models.Connection{}, fmt.Errorf("create connection %s: %w", connectionID, err)
	}
}

func (r *Badger) Get(ctx context.Context, connectionID string) (models.Connection, error) {
	if err := ctx.Err(); err != nil {
		return models.Connection{}, err
	}
	var conn models.Connection
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key(connectionID)))
		if err != nil {
			return err
		}
		conn, err = r.decodeItem(item)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Connection{}, notFound(connectionID)
	}
	if err != nil {
		return models.Connection{}, fmt.Errorf("get connection %s: %w", connectionID, err)
	}
	if conn.Expired(r.now()) {
		return models.Connection{}, notFound(connectionID)
	}
	return conn, nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (r *Badger) Delete(ctx context.Context, connectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key(connectionID)))
	})
	if err != nil {
		return fmt.Errorf("delete connection %s: %w", connectionID, err)
	}
	return nil
}

func (r *Badger) List(ctx context.Context) ([]models.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := r.now()
	var out []models.Connection
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			conn, err := r.decodeItem(it.Item())
			if err != nil {
				r.log.Warn("skipping unreadable connection record", zap.ByteString("key", it.Item().KeyCopy(nil)), zap.Error(err))
				continue
			}
			if conn.Expired(now) {
				continue
			}
			out = append(out, conn)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return out, nil
}

func (r *Badger) decodeItem(item *badger.Item) (models.Connection, error) {
	var conn models.Connection
	err := item.Value(func(val []byte) error {
		var err error
		conn, err = decode(val)
		return err
	})
	return conn, err
}
