package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"quillchat/internal/adapter/api/handler"
	"quillchat/internal/adapter/api/middleware"
	"quillchat/internal/infrastructure/ratelimit"
	"quillchat/internal/infrastructure/websocket"
	"quillchat/internal/mocks"
)

func newEcho(environment string) *echo.Echo {
	handler.Setup(context.Background(), nil, websocket.NewManager(), nil, "noop")

	e := echo.New()
	Setup(e, middleware.NewAuthMiddleware(new(mocks.IdentityProviderMock)), ratelimit.NewRateLimiter(30))
	SetupDevRouter(e, environment)
	return e
}

func TestRoutesAreRegistered(t *testing.T) {
	e := newEcho("development")

	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"GET /metrics",
		"GET /ws",
		"GET /v1/chat/state",
		"POST /v1/chat/conversations",
		"PUT /v1/chat/conversations/current",
		"GET /v1/chat/conversations/:id/messages",
		"DELETE /v1/chat/conversations/:id/messages/:messageId",
		"POST /v1/chat/messages/:id/retry",
		"POST /v1/chat/attachments",
		"GET /v1/chat/users/:id",
		"POST /_dev/token",
	} {
		assert.True(t, routes[want], want)
	}
}

func TestDevRoutesOnlyInDevelopment(t *testing.T) {
	e := newEcho("production")

	for _, r := range e.Routes() {
		assert.NotEqual(t, "/_dev/token", r.Path)
	}
}

func TestChatRoutesRequireToken(t *testing.T) {
	e := newEcho("production")

	for _, path := range []string{"/v1/chat/state", "/ws"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat_active_sessions")
}
