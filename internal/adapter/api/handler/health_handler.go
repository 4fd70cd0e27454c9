package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"quillchat/internal/usecase"
)

type HealthHandler struct {
	sessions      *usecase.SessionManager
	publisherMode string
}

func NewHealthHandler(sessions *usecase.SessionManager, publisherMode string) *HealthHandler {
	return &HealthHandler{
		sessions:      sessions,
		publisherMode: publisherMode,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status":    "Server is running",
		"time":      time.Now().Format(time.RFC3339),
		"publisher": h.publisherMode,
	}
	if h.sessions != nil {
		body["sessions"] = h.sessions.Len()
	}
	return c.JSON(http.StatusOK, body)
}
