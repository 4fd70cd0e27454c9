package router

import (
	"github.com/labstack/echo/v4"

	"quillchat/internal/adapter/api/handler"
	"quillchat/internal/adapter/api/middleware"
)

// SetupWebSocketRouter sets up the state stream. The token may be passed as a
// query parameter.
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	wsHandler := handler.GetWebSocketHandler()
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.AuthenticateQuery)
}
