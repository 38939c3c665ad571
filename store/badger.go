// Package store persists chat messages in a creation-time-ordered index.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/models"
)

const keyPrefix = "msg:"

// Badger is an append-only message store. Keys sort by creation time so a
// reverse prefix scan yields the newest messages first.
type Badger struct {
	db        *badger.DB
	log       *zap.Logger
	retention time.Duration
	now       func() time.Time
}

func NewBadger(db *badger.DB, retention time.Duration, log *zap.Logger) *Badger {
	return &Badger{db: db, log: log, retention: retention, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *Badger) WithClock(now func() time.Time) *Badger {
	s.now = now
	return s
}

func messageKey(m models.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", keyPrefix, m.CreatedAt.UnixNano(), m.ID))
}

// Append validates and writes a new message exactly once.
func (s *Badger) Append(ctx context.Context, connectionID, content, sender string) (models.Message, error) {
	msg, err := models.NewMessage(connectionID, content, sender, s.now(), s.retention)
	if err != nil {
		return models.Message{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("encode message: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(messageKey(msg), data).WithTTL(s.retention))
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("append message: %w", err)
	}

	s.log.Debug("message stored",
		zap.String("message_id", msg.ID),
		zap.String("connection_id", connectionID),
	)
	return msg, nil
}

// QueryRecent returns up to limit unexpired messages, newest first.
func (s *Badger) QueryRecent(ctx context.Context, limit int) ([]models.Message, error) {
	out := make([]models.Message, 0)
	if limit <= 0 {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		opts.PrefetchSize = limit
		it := txn.NewIterator(opts)
		defer it.Close()

		// 0xFF sorts after every digit, so the reverse seek lands on the newest key.
		seek := append([]byte(keyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var msg models.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				s.log.Warn("skipping unreadable message", zap.ByteString("key", it.Item().KeyCopy(nil)), zap.Error(err))
				continue
			}
			if msg.Expired(now) {
				continue
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	return out, nil
}
