package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/karthikraju391/go-nats-chat-relay/models"
)

type MessageQuerier interface {
	QueryRecent(ctx context.Context, limit int) ([]models.Message, error)
}

type HistoryHandler struct {
	store MessageQuerier
	limit int
	log   *zap.Logger
	group singleflight.Group // Coalesces concurrent history reads
}

func NewHistoryHandler(store MessageQuerier, limit int, log *zap.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, limit: limit, log: log}
}

type historyItem struct {
	ID           string    `json:"id"`
	Sender       string    `json:"sender"`
	ConnectionID string    `json:"connectionId"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LastMessages handles GET /chat/last-messages.
func (h *HistoryHandler) LastMessages(c *fiber.Ctx) error {
	h.log.Debug("fetch last messages request received", zap.String("ip", c.IP()))

	v, err, _ := h.group.Do("recent", func() (any, error) {
		return h.store.QueryRecent(c.UserContext(), h.limit)
	})
	if err != nil {
		h.log.Error("error fetching messages", zap.Error(err))
		return models.NewIntegrationError("Error fetching messages", err)
	}

	messages := lo.Map(v.([]models.Message), func(m models.Message, _ int) historyItem {
		return historyItem{
			ID:           m.ID,
			Sender:       m.Sender,
			ConnectionID: m.ConnectionID,
			Content:      m.Content,
			CreatedAt:    m.CreatedAt,
		}
	})
	return c.JSON(fiber.Map{"messages": messages})
}
