package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/ingest"
	"github.com/karthikraju391/go-nats-chat-relay/models"
)

type Ingestor interface {
	Handle(ctx context.Context, req ingest.Request) ingest.Response
}

// Gateway adapts websocket sessions to ingestion requests.
type Gateway struct {
	ingest Ingestor
	hub    *Hub
	log    *zap.Logger
}

func NewGateway(ing Ingestor, hub *Hub, log *zap.Logger) *Gateway {
	return &Gateway{ingest: ing, hub: hub, log: log}
}

// UpgradeGuard rejects plain HTTP requests on the websocket route.
func UpgradeGuard(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

type inboundFrame struct {
	Action models.RouteKey `json:"action"`
}

// routeKeyFor takes the route from the frame's action field, falling back to
// the default route for frames without one.
func routeKeyFor(raw []byte) models.RouteKey {
	var f inboundFrame
	if err := json.Unmarshal(raw, &f); err != nil || f.Action == "" {
		return models.RouteDefault
	}
	return f.Action
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// HandleWebSocket manages the lifecycle of one websocket session.
func (g *Gateway) HandleWebSocket(conn *websocket.Conn) {
	ctx := context.Background()
	id := uuid.NewString()
	var clientID *string
	if v := conn.Query("clientId"); v != "" {
		clientID = &v
	}
	client := NewClient(conn, id, clientID, g.log)

	// Registered before connect so deliveries addressed to the new id find it.
	g.hub.Register(client)

	resp := g.ingest.Handle(ctx, ingest.Request{
		EventType:    ingest.EventConnect,
		RouteKey:     models.RouteConnect,
		ConnectionID: id,
		ClientID:     clientID,
	})
	if !isSuccess(resp.StatusCode) {
		client.log.Warn("connect rejected", zap.Int("status", resp.StatusCode), zap.String("body", resp.Body))
		g.hub.Unregister(client)
		client.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(resp.Body))
		_ = conn.Close()
		return
	}
	client.log.Info("client connected")

	defer func() {
		g.hub.Unregister(client)
		client.Close()
		resp := g.ingest.Handle(ctx, ingest.Request{
			EventType:    ingest.EventDisconnect,
			RouteKey:     models.RouteDisconnect,
			ConnectionID: id,
			ClientID:     clientID,
		})
		client.log.Info("client disconnected", zap.Int("status", resp.StatusCode))
	}()

	go client.writePump()

	client.readPump(func(raw []byte) {
		resp := g.ingest.Handle(ctx, ingest.Request{
			EventType:    ingest.EventMessage,
			RouteKey:     routeKeyFor(raw),
			ConnectionID: id,
			ClientID:     clientID,
			Body:         raw,
		})
		if !isSuccess(resp.StatusCode) {
			client.tryEnqueue([]byte(resp.Body))
		}
	})
}
