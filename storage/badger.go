// Package storage owns the embedded badger database shared by the registry and the message store.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// gcDiscardRatio is the fraction of stale data a value log file needs before it is rewritten.
const gcDiscardRatio = 0.5

// Open opens the database at path, or an in-memory database when inMemory is set.
func Open(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.WARNING)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return db, nil
}

// RunGC reclaims space held by expired and deleted entries until ctx is done.
// Expired entries are already invisible to readers; this only returns disk space.
func RunGC(ctx context.Context, db *badger.DB, interval time.Duration, log *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("badger gc loop stopping")
			return nil
		case <-ticker.C:
			collected := collect(db)
			log.Debug("badger gc pass finished", zap.Int("rewritten_files", collected))
		}
	}
}

// collect runs value log GC until badger reports nothing left to rewrite.
func collect(db *badger.DB) int {
	if db.IsClosed() || db.Opts().InMemory {
		return 0
	}
	n := 0
	for {
		// ErrNoRewrite ends a normal pass; any other error ends it early.
		if err := db.RunValueLogGC(gcDiscardRatio); err != nil {
			return n
		}
		n++
	}
}
