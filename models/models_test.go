package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateContent_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "empty", content: "", wantErr: true},
		{name: "one character", content: "a", wantErr: false},
		{name: "max length", content: strings.Repeat("a", 150), wantErr: false},
		{name: "too long", content: strings.Repeat("a", 151), wantErr: true},
		{name: "two-byte characters are one unit each", content: strings.Repeat("é", 150), wantErr: false},
		{name: "emoji at the limit", content: strings.Repeat("😀", 75), wantErr: false},
		{name: "emoji over the limit", content: strings.Repeat("😀", 100), wantErr: true},
		{name: "emoji one unit over", content: strings.Repeat("😀", 75) + "a", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(tt.content)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestContentLength_CountsUTF16Units(t *testing.T) {
	req := require.New(t)
	req.Equal(0, ContentLength(""))
	req.Equal(5, ContentLength("hello"))
	req.Equal(1, ContentLength("é"))
	req.Equal(2, ContentLength("😀"))
	req.Equal(200, ContentLength(strings.Repeat("😀", 100)))
}

func TestValidateContent_Issues(t *testing.T) {
	var verr *ValidationError

	require.ErrorAs(t, ValidateContent(""), &verr)
	require.Equal(t, []string{"content must contain at least 1 character(s)"}, verr.Issues)

	require.ErrorAs(t, ValidateContent(strings.Repeat("😀", 76)), &verr)
	require.Equal(t, []string{"content must contain at most 150 character(s)"}, verr.Issues)
}

func TestNewMessage(t *testing.T) {
	req := require.New(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	msg, err := NewMessage("abc12345", "hi", "HappyPanda345", now, 24*time.Hour)

	req.NoError(err)
	req.NotEmpty(msg.ID)
	req.Equal("hi", msg.Content)
	req.Equal("HappyPanda345", msg.Sender)
	req.Equal("abc12345", msg.ConnectionID)
	req.Equal(now, msg.CreatedAt)
	req.Equal(now.Add(24*time.Hour), msg.ExpiresAt)
	req.False(msg.Expired(now))
	req.True(msg.Expired(now.Add(24 * time.Hour)))
}

func TestNewMessage_IDsAreSortable(t *testing.T) {
	req := require.New(t)
	now := time.Now()

	var previous string
	for i := 0; i < 100; i++ {
		msg, err := NewMessage("c", "x", "s", now, time.Hour)
		req.NoError(err)
		req.Greater(msg.ID, previous)
		previous = msg.ID
	}
}

func TestNewMessage_RejectsInvalidContent(t *testing.T) {
	_, err := NewMessage("c", "", "s", time.Now(), time.Hour)
	require.ErrorIs(t, err, ErrValidation)
}

func TestConnection_Expired(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	conn := NewConnection("abc", "WiseOwl12", nil, now, 2*time.Hour)

	req.False(conn.Expired(now))
	req.False(conn.Expired(now.Add(time.Hour)))
	req.True(conn.Expired(now.Add(2 * time.Hour)))
}

func TestIntegrationError_Unwrap(t *testing.T) {
	req := require.New(t)

	err := NewIntegrationError("Connection not found", ErrNotFound)

	req.ErrorIs(err, ErrIntegration)
	req.ErrorIs(err, ErrNotFound)
	req.NotErrorIs(err, ErrAlreadyExists)
	req.Equal("Connection not found", err.Message)

	var target *IntegrationError
	req.True(errors.As(err, &target))
}

func TestDecodeDeliveryTask(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "empty", data: "", wantErr: true},
		{name: "not json", data: "{oops", wantErr: true},
		{name: "missing connection", data: `{"message":{"content":"hi"}}`, wantErr: true},
		{name: "valid", data: `{"connectionId":"abc","message":{"action":"receiveMessage","sender":"s","content":"hi","timestamp":"t"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := DecodeDeliveryTask([]byte(tt.data))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "abc", task.ConnectionID)
			require.Equal(t, "hi", task.Message.Content)
		})
	}
}

func TestDeliveryTask_Payload(t *testing.T) {
	req := require.New(t)
	task := DeliveryTask{
		ConnectionID: "abc",
		Message:      DeliveryMessage{Action: RouteReceiveMessage, Sender: "s", Content: "hi", Timestamp: "t"},
	}

	payload, err := task.Payload()

	req.NoError(err)
	req.JSONEq(`{"action":"receiveMessage","sender":"s","content":"hi","timestamp":"t","connectionId":"abc"}`, string(payload))
}

func TestDecodeEvent(t *testing.T) {
	req := require.New(t)

	evt, err := DecodeEvent(KindMessageSent, []byte(`{"action":"sendMessage","content":"hi","sender":"s","messageId":"m1","clientId":null,"connectionId":"c1","timestamp":"2026-01-02T03:04:05Z"}`))
	req.NoError(err)
	sent, ok := evt.(MessageSent)
	req.True(ok)
	req.Equal("m1", sent.MessageID)
	req.Nil(sent.ClientID)

	_, err = DecodeEvent("unknown", []byte(`{}`))
	req.ErrorIs(err, ErrMalformedPayload)

	_, err = DecodeEvent(KindConnectionClosed, []byte(`[`))
	req.ErrorIs(err, ErrMalformedPayload)
}
