package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"quillchat/pkg/errors"
)

// WebSocket Message Types
const (
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
	MessageTypeState = "state"
	MessageTypeError = "error"

	MessageTypeSelectConversation = "select_conversation"
	MessageTypeOpenConversation   = "open_conversation"
	MessageTypeLoadMore           = "load_more"
	MessageTypeMarkRead           = "mark_read"
	MessageTypeTyping             = "typing"
	MessageTypeSendMessage        = "send_message"
	MessageTypeRetryMessage       = "retry_message"
	MessageTypeDeleteMessage      = "delete_message"
)

// WebSocket Message Structure
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// Intent payloads
type ConversationData struct {
	ConversationID string `json:"conversation_id"`
}

type OpenConversationData struct {
	UserID string `json:"user_id"`
}

type TypingData struct {
	ConversationID string `json:"conversation_id"`
	Typing         bool   `json:"typing"`
}

type SendMessageData struct {
	ReceiverID string                 `json:"receiver_id"`
	Content    string                 `json:"content"`
	Type       string                 `json:"type"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type RetryMessageData struct {
	TempID string `json:"temp_id"`
}

type DeleteMessageData struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IntentHandler applies a user intent received over a connection.
type IntentHandler interface {
	HandleIntent(ctx context.Context, userID string, msg *WSMessage) error
}

// NewMessage encodes an outgoing frame.
func NewMessage(messageType string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}

	return json.Marshal(WSMessage{
		Type:      messageType,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Decode unmarshals the payload of msg into v.
func (msg *WSMessage) Decode(v interface{}) error {
	if len(msg.Data) == 0 {
		return errors.BadRequest("Missing message data", nil)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return errors.BadRequest("Invalid message data", err)
	}
	return nil
}

// handleMessage processes one inbound frame and returns the reply, if any.
func (c *Client) handleMessage(ctx context.Context, handler IntentHandler, raw []byte) []byte {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return errorFrame(errors.BadRequest("Invalid message format", err))
	}

	if msg.Type == MessageTypePing {
		reply, _ := NewMessage(MessageTypePong, nil)
		return reply
	}

	if handler == nil {
		return nil
	}
	if err := handler.HandleIntent(ctx, c.UserID, &msg); err != nil {
		log.Printf("HandleIntent Error: user %s, type %s: %v", c.UserID, msg.Type, err)
		return errorFrame(err)
	}
	return nil
}

func errorFrame(err error) []byte {
	frame, _ := NewMessage(MessageTypeError, ErrorData{
		Code:    errors.CodeOf(err),
		Message: errors.Message(err),
	})
	return frame
}
