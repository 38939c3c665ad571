package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/metrics"
	"github.com/karthikraju391/go-nats-chat-relay/models"
)

var validate = validator.New()

// Request is one inbound gateway event.
type Request struct {
	EventType    EventType
	RouteKey     models.RouteKey
	ConnectionID string
	ClientID     *string
	Body         []byte
}

// Response mirrors what the gateway returns to the client.
type Response struct {
	StatusCode int
	Body       string
}

type sendMessageBody struct {
	Content string `json:"content" validate:"required"`
}

// Handle resolves the request's action, runs it under the operation timeout
// and renders the outcome. It never returns an error: every failure becomes a
// client (4xx) or server (5xx) response.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	log := h.log.With(
		zap.String("connection_id", req.ConnectionID),
		zap.String("route_key", string(req.RouteKey)),
	)
	if req.ConnectionID == "" {
		log.Error("connectionId not found")
		return jsonResponse(http.StatusBadRequest, map[string]string{"message": "ConnectionId not found"})
	}
	if req.RouteKey == "" {
		log.Error("routeKey not found")
		return jsonResponse(http.StatusBadRequest, map[string]string{"message": "RouteKey not found"})
	}

	action := ResolveAction(req.EventType, req.RouteKey)
	resp := h.handle(ctx, action, req)
	metrics.IngestRequestsTotal.WithLabelValues(action.String(), strconv.Itoa(resp.StatusCode)).Inc()
	return resp
}

func (h *Handler) handle(ctx context.Context, action Action, req Request) Response {
	if h.opts.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.OperationTimeout)
		defer cancel()
	}

	switch action {
	case ActionConnect:
		if _, err := h.Connect(ctx, req.ConnectionID, req.ClientID); err != nil {
			return h.errorResponse(req, err)
		}
		return Response{StatusCode: http.StatusOK, Body: "Connected"}

	case ActionDisconnect:
		if _, err := h.Disconnect(ctx, req.ConnectionID); err != nil {
			return h.errorResponse(req, err)
		}
		return Response{StatusCode: http.StatusOK, Body: "Disconnected"}

	case ActionSendMessage:
		body, err := parseSendMessage(req.Body)
		if err != nil {
			return h.errorResponse(req, err)
		}
		if _, err := h.SendMessage(ctx, req.ConnectionID, body.Content); err != nil {
			return h.errorResponse(req, err)
		}
		return jsonResponse(http.StatusOK, map[string]string{"status": "Message sent successfully"})

	case ActionSystemMessage:
		return jsonResponse(http.StatusOK, map[string]string{"status": "System message sent successfully"})

	case ActionReceiveMessage:
		return jsonResponse(http.StatusOK, map[string]string{"status": "Message received successfully"})

	case ActionDefault:
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Unsupported action: %s", req.RouteKey)})

	default:
		h.log.Error("unknown route key",
			zap.String("route_key", string(req.RouteKey)),
			zap.String("event_type", string(req.EventType)),
		)
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": "Unknown route key"})
	}
}

func parseSendMessage(raw []byte) (sendMessageBody, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var body sendMessageBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return sendMessageBody{}, models.NewValidationError("body must be a JSON object with a string content field")
	}
	if err := validate.Struct(body); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return sendMessageBody{}, models.NewValidationError(lo.Map(verrs, func(fe validator.FieldError, _ int) string {
				return fieldIssue(fe)
			})...)
		}
		return sendMessageBody{}, models.NewValidationError(err.Error())
	}
	return body, nil
}

func fieldIssue(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "content is required"
	default:
		return fmt.Sprintf("content failed on the '%s' rule", fe.Tag())
	}
}

func (h *Handler) errorResponse(req Request, err error) Response {
	var (
		verr *models.ValidationError
		ierr *models.IntegrationError
	)
	switch {
	case errors.As(err, &verr):
		h.log.Info("validation failed", zap.String("connection_id", req.ConnectionID), zap.Strings("issues", verr.Issues))
		return jsonResponse(http.StatusBadRequest, map[string]any{"message": "Validation error.", "issues": verr.Issues})
	case errors.As(err, &ierr):
		return jsonResponse(http.StatusBadRequest, map[string]string{"message": ierr.Message})
	default:
		h.log.Error("error handling websocket event", zap.String("connection_id", req.ConnectionID), zap.Error(err))
		return jsonResponse(http.StatusInternalServerError, map[string]string{"message": "Internal server error."})
	}
}

func jsonResponse(status int, v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return Response{StatusCode: http.StatusInternalServerError, Body: `{"message":"Internal server error."}`}
	}
	return Response{StatusCode: status, Body: string(data)}
}
