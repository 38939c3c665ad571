package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/models"
	"github.com/karthikraju391/go-nats-chat-relay/storage"
)

func newStore(t *testing.T) *Badger {
	t.Helper()
	db, err := storage.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBadger(db, 24*time.Hour, zap.NewNop())
}

func TestAppend_PersistsMessage(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	// When
	msg, err := s.Append(context.Background(), "abc12345", "hi", "CalmFox345")

	// Then
	req.NoError(err)
	req.NotEmpty(msg.ID)
	req.Equal("hi", msg.Content)
	req.Equal("CalmFox345", msg.Sender)
	req.Equal("abc12345", msg.ConnectionID)
	req.Equal(msg.CreatedAt.Add(24*time.Hour), msg.ExpiresAt)

	recent, err := s.QueryRecent(context.Background(), 20)
	req.NoError(err)
	req.Len(recent, 1)
	req.Equal(msg.ID, recent[0].ID)
}

func TestAppend_RejectsInvalidContent(t *testing.T) {
	req := require.New(t)
	s := newStore(t)
	ctx := context.Background()

	for _, content := range []string{"", string(make([]rune, 151))} {
		_, err := s.Append(ctx, "c1", content, "s")
		req.ErrorIs(err, models.ErrValidation)
	}

	recent, err := s.QueryRecent(ctx, 20)
	req.NoError(err)
	req.Empty(recent)
}

func TestQueryRecent_EmptyStore(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	recent, err := s.QueryRecent(context.Background(), 20)
	req.NoError(err)
	req.NotNil(recent)
	req.Empty(recent)
}

func TestQueryRecent_NewestFirstAndLimited(t *testing.T) {
	req := require.New(t)
	s := newStore(t)
	ctx := context.Background()

	// Given messages written by concurrent senders
	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(ctx, fmt.Sprintf("c%d", i), fmt.Sprintf("m%d", i), "s")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	// When
	recent, err := s.QueryRecent(ctx, 20)

	// Then
	req.NoError(err)
	req.Len(recent, 20)
	for i := 1; i < len(recent); i++ {
		prev, cur := recent[i-1], recent[i]
		req.False(cur.CreatedAt.After(prev.CreatedAt), "messages out of order at %d", i)
		if cur.CreatedAt.Equal(prev.CreatedAt) {
			req.Greater(prev.ID, cur.ID)
		}
	}
}

func TestQueryRecent_SequentialOrder(t *testing.T) {
	req := require.New(t)
	s := newStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		s.WithClock(func() time.Time { return at })
		_, err := s.Append(ctx, "c", fmt.Sprintf("m%d", i), "s")
		req.NoError(err)
	}
	s.WithClock(func() time.Time { return base.Add(time.Minute) })

	recent, err := s.QueryRecent(ctx, 3)
	req.NoError(err)
	req.Len(recent, 3)
	req.Equal("m4", recent[0].Content)
	req.Equal("m3", recent[1].Content)
	req.Equal("m2", recent[2].Content)
}

func TestQueryRecent_SkipsExpired(t *testing.T) {
	req := require.New(t)
	s := newStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.WithClock(func() time.Time { return base })
	_, err := s.Append(ctx, "c", "old", "s")
	req.NoError(err)

	s.WithClock(func() time.Time { return base.Add(23 * time.Hour) })
	_, err = s.Append(ctx, "c", "new", "s")
	req.NoError(err)

	// When the first message passes its retention
	s.WithClock(func() time.Time { return base.Add(24 * time.Hour) })
	recent, err := s.QueryRecent(ctx, 20)

	// Then only the second is returned
	req.NoError(err)
	req.Len(recent, 1)
	req.Equal("new", recent[0].Content)
}

func TestQueryRecent_NonPositiveLimit(t *testing.T) {
	req := require.New(t)
	s := newStore(t)
	_, err := s.Append(context.Background(), "c", "hi", "s")
	req.NoError(err)

	recent, err := s.QueryRecent(context.Background(), 0)
	req.NoError(err)
	req.Empty(recent)
}
