package router

import (
	"github.com/labstack/echo/v4"

	"quillchat/internal/adapter/api/handler"
	"quillchat/internal/adapter/api/middleware"
	"quillchat/internal/infrastructure/ratelimit"
)

// SetupChatRouter sets up all chat routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *ratelimit.RateLimiter) {
	chatHandler := handler.GetChatHandler()

	chatGroup := e.Group("/v1/chat")
	chatGroup.Use(authMiddleware.Authenticate)
	chatGroup.Use(middleware.RateLimit(rateLimiter))

	chatGroup.GET("/state", chatHandler.GetState)

	// Conversations
	chatGroup.GET("/conversations", chatHandler.GetConversations)
	chatGroup.POST("/conversations", chatHandler.OpenConversation)
	chatGroup.PUT("/conversations/current", chatHandler.SetCurrentConversation)
	chatGroup.GET("/conversations/:id/messages", chatHandler.GetMessages)
	chatGroup.POST("/conversations/:id/read", chatHandler.MarkAsRead)
	chatGroup.POST("/conversations/:id/typing", chatHandler.SetTyping)
	chatGroup.DELETE("/conversations/:id/messages/:messageId", chatHandler.DeleteMessage)

	// Messages
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/messages/:id/retry", chatHandler.RetryMessage)
	chatGroup.POST("/attachments", chatHandler.UploadAttachment)

	// Users
	chatGroup.GET("/users", chatHandler.SearchUsers)
	chatGroup.GET("/users/:id", chatHandler.GetUser)
}
