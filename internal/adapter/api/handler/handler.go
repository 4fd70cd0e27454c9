package handler

import (
	"context"

	"quillchat/internal/infrastructure/websocket"
	"quillchat/internal/usecase"
)

var (
	chatHandler      *ChatHandler
	webSocketHandler *WebSocketHandler
	healthHandler    *HealthHandler
	devTokenHandler  *DevTokenHandler
)

func Setup(
	ctx context.Context,
	sessions *usecase.SessionManager,
	wsManager *websocket.Manager,
	devTokens DevTokenIssuer,
	publisherMode string,
) {
	chatHandler = NewChatHandler(sessions)
	webSocketHandler = NewWebSocketHandler(ctx, wsManager, sessions)
	healthHandler = NewHealthHandler(sessions, publisherMode)
	devTokenHandler = NewDevTokenHandler(devTokens)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}
