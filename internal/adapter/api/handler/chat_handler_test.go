package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quillchat/internal/adapter/api"
	"quillchat/internal/domain/entity"
	"quillchat/internal/domain/repository"
	ws "quillchat/internal/infrastructure/websocket"
	"quillchat/internal/mocks"
	"quillchat/internal/usecase"
	"quillchat/pkg/config"
	"quillchat/pkg/errors"
)

type harness struct {
	e        *echo.Echo
	sessions *usecase.SessionManager
	convs    *mocks.ConversationRepositoryMock
	msgs     *mocks.MessageRepositoryMock
	users    *mocks.UserRepositoryMock
	notes    *mocks.NotificationRepositoryMock
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		convs: new(mocks.ConversationRepositoryMock),
		msgs:  new(mocks.MessageRepositoryMock),
		users: new(mocks.UserRepositoryMock),
		notes: new(mocks.NotificationRepositoryMock),
	}
	h.users.On("Upsert", mock.Anything, mock.Anything).Return(nil).Maybe()
	h.users.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	h.convs.On("ListenByParticipant", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(repository.Unsubscribe(func() {})).Maybe()

	identities := new(mocks.IdentityProviderMock)
	identities.On("Identity", mock.Anything, "u1").Return(&entity.Identity{UID: "u1", DisplayName: "Ursula"}, nil).Maybe()
	identities.On("Identity", mock.Anything, "ghost").Return(nil, errors.NotFound("User", nil)).Maybe()

	factory := func(identity entity.Identity) *usecase.ChatUseCase {
		return usecase.NewChatUseCase(identity, config.DefaultChatConfig(),
			h.convs, h.msgs, h.users, h.notes, nil, nil, nil)
	}
	h.sessions = usecase.NewSessionManager(context.Background(), identities, factory, time.Minute)
	t.Cleanup(h.sessions.Shutdown)

	h.e = echo.New()
	h.e.Validator = api.NewValidator()
	asUser := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid := c.Request().Header.Get("X-Test-UID"); uid != "" {
				c.Set("uid", uid)
			}
			return next(c)
		}
	}

	chat := NewChatHandler(h.sessions)
	g := h.e.Group("/v1/chat", asUser)
	g.GET("/state", chat.GetState)
	g.POST("/conversations", chat.OpenConversation)
	g.GET("/conversations/:id/messages", chat.GetMessages)
	g.DELETE("/conversations/:id/messages/:messageId", chat.DeleteMessage)
	g.POST("/messages", chat.SendMessage)
	g.GET("/users", chat.SearchUsers)
	return h
}

func (h *harness) do(method, path, uid, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if uid != "" {
		req.Header.Set("X-Test-UID", uid)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestGetStateRequiresAuthentication(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/v1/chat/state", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, errors.CodeUnauthorized, decode(t, rec).Error.Code)
}

func TestGetStateUnknownUser(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/v1/chat/state", "ghost", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestGetStateStartsSession(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/v1/chat/state", "u1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"conversations":[]`)
	assert.NotContains(t, string(env.Data), "MessageCache")
	assert.Equal(t, 1, h.sessions.Len())
}

func TestSendMessageValidation(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/v1/chat/messages", "u1", `{"content":"hi"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "receiverid is required", env.Error.Message)
}

func TestSendMessageCreatesMessage(t *testing.T) {
	h := newHarness(t)
	h.msgs.On("Create", mock.Anything, mock.AnythingOfType("*entity.Message")).Run(func(args mock.Arguments) {
		args.Get(1).(*entity.Message).ID = "m1"
	}).Return(nil).Once()
	h.convs.On("RecordMessage", mock.Anything, "u1_u2", []string{"u1", "u2"}, mock.Anything).Return(nil).Once()
	h.notes.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	rec := h.do(http.MethodPost, "/v1/chat/messages", "u1", `{"receiver_id":"u2","content":"hi"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var msg entity.Message
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &msg))
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "u1_u2", msg.ConversationID)
	assert.Equal(t, entity.MessageStatusSent, msg.Status)
	h.msgs.AssertExpectations(t)
	h.convs.AssertExpectations(t)
}

func TestGetMessagesReturnsCursorPage(t *testing.T) {
	h := newHarness(t)
	conv := &entity.Conversation{ID: "u1_u2", Participants: []string{"u1", "u2"}}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	full := make([]entity.Message, 0, 50)
	for i := 50; i > 0; i-- {
		full = append(full, entity.Message{
			ID:             fmt.Sprintf("m%03d", i),
			ConversationID: "u1_u2",
			SenderID:       "u2",
			ReceiverID:     "u1",
			Timestamp:      at.Add(time.Duration(i) * time.Minute),
			Read:           true,
		})
	}

	h.convs.On("GetByID", mock.Anything, "u1_u2").Return(conv, nil)
	h.msgs.On("ListPage", mock.Anything, "u1_u2", mock.Anything, 50).Return(full, nil).Once()
	h.msgs.On("ListenLatest", mock.Anything, "u1_u2", mock.Anything, mock.Anything).Return(repository.Unsubscribe(func() {})).Once()

	rec := h.do(http.MethodGet, "/v1/chat/conversations/u1_u2/messages", "u1", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page struct {
		Items      []entity.Message `json:"items"`
		NextCursor string           `json:"next_cursor"`
		HasMore    bool             `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	assert.Len(t, page.Items, 50)
	assert.Equal(t, "m001", page.Items[0].ID)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
}

func TestGetMessagesForbidden(t *testing.T) {
	h := newHarness(t)
	h.convs.On("GetByID", mock.Anything, "u2_u3").
		Return(&entity.Conversation{ID: "u2_u3", Participants: []string{"u2", "u3"}}, nil).Once()

	rec := h.do(http.MethodGet, "/v1/chat/conversations/u2_u3/messages", "u1", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, errors.CodeForbidden, decode(t, rec).Error.Code)
}

func TestDeleteMessageByNonSender(t *testing.T) {
	h := newHarness(t)
	h.convs.On("GetByID", mock.Anything, "u1_u2").
		Return(&entity.Conversation{ID: "u1_u2", Participants: []string{"u1", "u2"}}, nil).Once()
	h.msgs.On("GetByID", mock.Anything, "m1").
		Return(&entity.Message{ID: "m1", ConversationID: "u1_u2", SenderID: "u2", ReceiverID: "u1"}, nil).Once()

	rec := h.do(http.MethodDelete, "/v1/chat/conversations/u1_u2/messages/m1", "u1", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	h.msgs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestOpenConversationWithSelf(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/v1/chat/conversations", "u1", `{"user_id":"u1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeBadRequest, decode(t, rec).Error.Code)
}

func TestSearchUsers(t *testing.T) {
	h := newHarness(t)
	h.users.On("SearchByDisplayName", mock.Anything, "Ad", mock.Anything).
		Return([]entity.ChatUser{{ID: "u1", DisplayName: "Adam"}, {ID: "u2", DisplayName: "Ada"}}, nil).Once()

	rec := h.do(http.MethodGet, "/v1/chat/users?q=Ad", "u1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var users []entity.ChatUser
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)
}

func TestHandleIntent(t *testing.T) {
	h := newHarness(t)
	wsHandler := NewWebSocketHandler(context.Background(), ws.NewManager(), h.sessions)
	ctx := context.Background()

	err := wsHandler.HandleIntent(ctx, "u1", &ws.WSMessage{Type: "dance"})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	err = wsHandler.HandleIntent(ctx, "u1", &ws.WSMessage{Type: ws.MessageTypeTyping})
	assert.True(t, errors.Is(err, errors.CodeBadRequest), "missing data")

	err = wsHandler.HandleIntent(ctx, "u1", &ws.WSMessage{
		Type: ws.MessageTypeSelectConversation,
		Data: json.RawMessage(`{"conversation_id":""}`),
	})
	require.NoError(t, err)

	err = wsHandler.HandleIntent(ctx, "ghost", &ws.WSMessage{Type: ws.MessageTypeLoadMore})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestCheckHealth(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	healthHandler := NewHealthHandler(nil, "noop")

	if assert.NoError(t, healthHandler.CheckHealth(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Server is running")
		assert.Contains(t, rec.Body.String(), "noop")
	}
}

type issuerMock struct {
	mock.Mock
}

func (m *issuerMock) GenerateDevToken(ctx context.Context, uid string) (string, error) {
	args := m.Called(ctx, uid)
	return args.String(0), args.Error(1)
}

func TestGenerateDevToken(t *testing.T) {
	issuer := new(issuerMock)
	issuer.On("GenerateDevToken", mock.Anything, "u1").Return("custom-token", nil).Once()
	handler := NewDevTokenHandler(issuer)

	e := echo.New()
	e.Validator = api.NewValidator()
	req := httptest.NewRequest(http.MethodPost, "/_dev/token", strings.NewReader(`{"uid":"u1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, handler.GenerateToken(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "custom-token")

	req = httptest.NewRequest(http.MethodPost, "/_dev/token", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	require.NoError(t, handler.GenerateToken(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	issuer.AssertExpectations(t)
}
