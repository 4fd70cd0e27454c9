package handler

import (
	"context"
	"log"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"quillchat/internal/domain/entity"
	ws "quillchat/internal/infrastructure/websocket"
	"quillchat/internal/usecase"
	"quillchat/pkg/errors"
	"quillchat/pkg/response"
)

type WebSocketHandler struct {
	ctx       context.Context
	wsManager *ws.Manager
	sessions  *usecase.SessionManager
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewWebSocketHandler creates the handler. Connections live until ctx is done.
func NewWebSocketHandler(ctx context.Context, wsManager *ws.Manager, sessions *usecase.SessionManager) *WebSocketHandler {
	return &WebSocketHandler{
		ctx:       ctx,
		wsManager: wsManager,
		sessions:  sessions,
	}
}

// HandleWebSocket upgrades the request, sends the current state and keeps the
// caller's session alive for as long as the connection is open.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID, ok := c.Get("uid").(string)
	if !ok || userID == "" {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	session, release, err := h.sessions.Acquire(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		release()
		log.Printf("HandleWebSocket Error: upgrade failed for %s: %v", userID, err)
		return nil
	}

	client := ws.NewClient(userID, conn)
	if !h.wsManager.Connect(client) {
		release()
		conn.Close()
		return nil
	}

	go client.WritePump()
	if frame, err := ws.NewMessage(ws.MessageTypeState, session.State()); err == nil {
		client.Send <- frame
	}
	go func() {
		defer release()
		client.ReadPump(h.ctx, h.wsManager, h)
	}()

	return nil
}

// HandleIntent applies one intent frame to the session of userID. State
// changes reach the client through the session subscription.
func (h *WebSocketHandler) HandleIntent(ctx context.Context, userID string, msg *ws.WSMessage) error {
	session, err := h.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}

	switch msg.Type {
	case ws.MessageTypeSelectConversation:
		var data ws.ConversationData
		if err := msg.Decode(&data); err != nil {
			return err
		}
		return session.SetCurrentConversation(ctx, data.ConversationID)

	case ws.MessageTypeOpenConversation:
		var data ws.OpenConversationData
		if err := msg.Decode(&data); err != nil {
			return err
		}
		_, err := session.OpenConversation(ctx, data.UserID)
		return err

	case ws.MessageTypeLoadMore:
		return session.LoadMoreMessages(ctx)

	case ws.MessageTypeMarkRead:
		var data ws.ConversationData
		if err := msg.Decode(&data); err != nil {
			return err
		}
		return session.MarkAsRead(ctx, data.ConversationID)

	case ws.MessageTypeTyping:
		var data ws.TypingData
		if err := msg.Decode(&data); err != nil {
			return err
		}
		return session.SetTyping(ctx, data.ConversationID, data.Typing)

	case ws.MessageTypeSendMessage:
		var data ws.SendMessageData
		if err := msg.Decode(&data); err != nil {
			return err
		}
		_, err := session.SendMessage(ctx, usecase.SendMessageInput{
			ReceiverID: data.ReceiverID,
			Content:    data.Content,
			Type:       entity.MessageType(data.Type),
			Metadata:   data.Metadata,
		})
		return err

	case ws.MessageTypeRetryMessage:
		var data ws.RetryMessageData
		if err := msg.Decode(&data); err != nil {
			return err
		}
		_, err := session.RetryMessage(ctx, data.TempID)
		return err

	case ws.MessageTypeDeleteMessage:
		var data ws.DeleteMessageData
		if err := msg.Decode(&data); err != nil {
			return err
		}
		return session.DeleteMessage(ctx, data.MessageID, data.ConversationID)

	default:
		return errors.BadRequest("Unknown message type: "+msg.Type, nil)
	}
}
