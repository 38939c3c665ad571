package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/metrics"
	"github.com/karthikraju391/go-nats-chat-relay/models"
)

// Deps are the collaborators the HTTP routes need.
type Deps struct {
	Gateway *Gateway
	History *HistoryHandler
	Ready   func() bool
	Log     *zap.Logger
}

// NewApp wires every HTTP and websocket route.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "chat-relay",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(d.Log),
	})
	app.Use(fiberrecover.New())
	app.Use(requestLogger(d.Log))

	app.Get("/health/live", Live)
	app.Get("/health/ready", Ready(d.Ready))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	chat := app.Group("/chat", cors.New(cors.Config{AllowOrigins: "*"}))
	chat.Get("/last-messages", d.History.LastMessages)

	app.Use("/ws", UpgradeGuard)
	app.Get("/ws", websocket.New(d.Gateway.HandleWebSocket))

	return app
}

// ErrorHandler renders handler errors the same way the ingestion path does.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			verr *models.ValidationError
			ierr *models.IntegrationError
			ferr *fiber.Error
		)
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Validation error.", "issues": verr.Issues})
		case errors.As(err, &ierr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": ierr.Message})
		case errors.As(err, &ferr):
			return c.Status(ferr.Code).JSON(fiber.Map{"message": ferr.Message})
		default:
			log.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error."})
		}
	}
}

func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			// Render now so the logged status is the one the client sees.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		observeRequest(c.Method(), c.Route().Path, status)
		log.Debug("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

func observeRequest(method, path string, status int) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
