package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/models"
	"github.com/karthikraju391/go-nats-chat-relay/registry"
	"github.com/karthikraju391/go-nats-chat-relay/sender"
	"github.com/karthikraju391/go-nats-chat-relay/storage"
	"github.com/karthikraju391/go-nats-chat-relay/store"
)

type fakeEmitter struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (e *fakeEmitter) Emit(_ context.Context, evt models.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, evt)
	return nil
}

func (e *fakeEmitter) Events() []models.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Event(nil), e.events...)
}

type countingStore struct {
	Store
	appends int
}

func (s *countingStore) Append(ctx context.Context, connectionID, content, sender string) (models.Message, error) {
	s.appends++
	return s.Store.Append(ctx, connectionID, content, sender)
}

type brokenRegistry struct{}

var errRegistryDown = errors.New("registry unavailable")

func (brokenRegistry) Create(context.Context, string, *string, time.Duration) (models.Connection, error) {
	return models.Connection{}, errRegistryDown
}

func (brokenRegistry) Get(context.Context, string) (models.Connection, error) {
	return models.Connection{}, errRegistryDown
}

func (brokenRegistry) Delete(context.Context, string) error {
	return errRegistryDown
}

type fixture struct {
	handler  *Handler
	registry *registry.Badger
	store    *store.Badger
	appends  *countingStore
	emitter  *fakeEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	reg := registry.NewBadger(db, zap.NewNop())
	st := store.NewBadger(db, 24*time.Hour, zap.NewNop())
	counting := &countingStore{Store: st}
	em := &fakeEmitter{}
	h := NewHandler(reg, counting, em, zap.NewNop(), Options{
		ConnectionTTL:    2 * time.Hour,
		OperationTimeout: time.Second,
	})
	return &fixture{handler: h, registry: reg, store: st, appends: counting, emitter: em}
}

func TestEndToEnd_ConnectSendDisconnect(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	wantSender := sender.Generate("abc12345")

	// When the connection is established
	conn, err := f.handler.Connect(ctx, "abc12345", nil)
	req.NoError(err)
	req.Equal(wantSender, conn.Sender)
	req.Nil(conn.ClientID)

	// And a message is sent
	msg, err := f.handler.SendMessage(ctx, "abc12345", "hi")
	req.NoError(err)
	req.Equal(wantSender, msg.Sender)
	req.Equal("hi", msg.Content)

	recent, err := f.store.QueryRecent(ctx, 20)
	req.NoError(err)
	req.Len(recent, 1)
	req.Equal(msg.ID, recent[0].ID)

	// And the connection is closed
	closed, err := f.handler.Disconnect(ctx, "abc12345")
	req.NoError(err)
	req.Equal(wantSender, closed.Sender)

	_, err = f.registry.Get(ctx, "abc12345")
	req.ErrorIs(err, models.ErrNotFound)

	// Then the three events were emitted in order
	events := f.emitter.Events()
	req.Len(events, 3)

	established, ok := events[0].(models.ConnectionEstablished)
	req.True(ok)
	req.Equal(wantSender, established.Sender)
	req.Equal(models.RouteConnect, established.Action)

	sent, ok := events[1].(models.MessageSent)
	req.True(ok)
	req.Equal(msg.ID, sent.MessageID)
	req.Equal("abc12345", sent.ConnectionID)
	req.Equal(wantSender, sent.Sender)

	closedEvt, ok := events[2].(models.ConnectionClosed)
	req.True(ok)
	req.Equal(wantSender, closedEvt.Sender)
	req.Equal(models.RouteDisconnect, closedEvt.Action)
}

func TestConnect_DuplicateFails(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.handler.Connect(ctx, "c1", nil)
	req.NoError(err)

	_, err = f.handler.Connect(ctx, "c1", nil)
	req.ErrorIs(err, models.ErrAlreadyExists)
	req.ErrorIs(err, models.ErrIntegration)
	req.Len(f.emitter.Events(), 1)
}

func TestConnect_AfterDisconnectSucceeds(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.handler.Connect(ctx, "c1", nil)
	req.NoError(err)
	_, err = f.handler.Disconnect(ctx, "c1")
	req.NoError(err)

	_, err = f.handler.Connect(ctx, "c1", nil)
	req.NoError(err)
}

func TestConnect_CarriesClientID(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	clientID := "browser-7"

	conn, err := f.handler.Connect(context.Background(), "c1", &clientID)
	req.NoError(err)
	req.Equal("browser-7", *conn.ClientID)

	msg, err := f.handler.SendMessage(context.Background(), "c1", "hello")
	req.NoError(err)
	sent := f.emitter.Events()[1].(models.MessageSent)
	req.Equal(msg.ID, sent.MessageID)
	req.Equal("browser-7", *sent.ClientID)
}

func TestConnect_EmitFailureKeepsRecord(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.emitter.err = errors.New("nats down")
	ctx := context.Background()

	_, err := f.handler.Connect(ctx, "c1", nil)
	req.ErrorIs(err, models.ErrIntegration)

	_, err = f.registry.Get(ctx, "c1")
	req.NoError(err)
}

func TestDisconnect_UnknownConnection(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	_, err := f.handler.Disconnect(context.Background(), "never")

	req.ErrorIs(err, models.ErrNotFound)
	req.Empty(f.emitter.Events())
}

func TestDisconnect_Twice(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.handler.Connect(ctx, "c1", nil)
	req.NoError(err)
	_, err = f.handler.Disconnect(ctx, "c1")
	req.NoError(err)

	_, err = f.handler.Disconnect(ctx, "c1")
	req.ErrorIs(err, models.ErrNotFound)
	req.Len(f.emitter.Events(), 2)
}

func TestDisconnect_EmitFailureStillDeletes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.handler.Connect(ctx, "c1", nil)
	req.NoError(err)
	f.emitter.err = errors.New("nats down")

	_, err = f.handler.Disconnect(ctx, "c1")
	req.ErrorIs(err, models.ErrIntegration)

	_, err = f.registry.Get(ctx, "c1")
	req.ErrorIs(err, models.ErrNotFound)
}

func TestSendMessage_UnknownConnection(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	_, err := f.handler.SendMessage(context.Background(), "ghost", "hi")

	req.ErrorIs(err, models.ErrNotFound)
	req.Zero(f.appends.appends)
	req.Empty(f.emitter.Events())
}

func TestSendMessage_InvalidContentHasNoSideEffects(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.handler.Connect(ctx, "c1", nil)
	req.NoError(err)

	for _, content := range []string{"", strings.Repeat("x", 151), strings.Repeat("😀", 100)} {
		_, err := f.handler.SendMessage(ctx, "c1", content)
		req.ErrorIs(err, models.ErrValidation)
	}

	req.Zero(f.appends.appends)
	req.Len(f.emitter.Events(), 1)
}

func TestSendMessage_BoundaryLengths(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.handler.Connect(ctx, "c1", nil)
	req.NoError(err)

	_, err = f.handler.SendMessage(ctx, "c1", "x")
	req.NoError(err)
	_, err = f.handler.SendMessage(ctx, "c1", strings.Repeat("é", 150))
	req.NoError(err)
	_, err = f.handler.SendMessage(ctx, "c1", strings.Repeat("😀", 75))
	req.NoError(err)
	req.Equal(3, f.appends.appends)
}

func TestHandler_RegistryFailureIsIntegrationError(t *testing.T) {
	req := require.New(t)
	h := NewHandler(brokenRegistry{}, nil, &fakeEmitter{}, zap.NewNop(), Options{ConnectionTTL: time.Hour})
	ctx := context.Background()

	_, err := h.Connect(ctx, "c1", nil)
	req.ErrorIs(err, models.ErrIntegration)
	req.ErrorIs(err, errRegistryDown)

	_, err = h.Disconnect(ctx, "c1")
	req.ErrorIs(err, models.ErrIntegration)
	req.NotErrorIs(err, models.ErrNotFound)

	_, err = h.SendMessage(ctx, "c1", "hi")
	req.ErrorIs(err, models.ErrIntegration)
}
