package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"quillchat/internal/domain/entity"
	"quillchat/internal/usecase"
	"quillchat/pkg/errors"
	"quillchat/pkg/response"
	"quillchat/pkg/utils"
)

const maxAttachmentSize = 10 << 20

type ChatHandler struct {
	sessions *usecase.SessionManager
}

func NewChatHandler(sessions *usecase.SessionManager) *ChatHandler {
	return &ChatHandler{
		sessions: sessions,
	}
}

type openConversationRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type currentConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type typingRequest struct {
	Typing bool `json:"typing"`
}

type sendMessageRequest struct {
	ReceiverID string                 `json:"receiver_id" validate:"required"`
	Content    string                 `json:"content" validate:"max=4000"`
	Type       string                 `json:"type" validate:"omitempty,oneof=text image file"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// session runs fn on the caller's synchronization session.
func (h *ChatHandler) session(c echo.Context, fn func(uc *usecase.ChatUseCase) error) error {
	userID, ok := c.Get("uid").(string)
	if !ok || userID == "" {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	uc, release, err := h.sessions.Acquire(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	defer release()

	return fn(uc)
}

// GetState returns the full state snapshot of the caller
func (h *ChatHandler) GetState(c echo.Context) error {
	return h.session(c, func(uc *usecase.ChatUseCase) error {
		return response.Success(c, uc.State())
	})
}

func (h *ChatHandler) GetConversations(c echo.Context) error {
	return h.session(c, func(uc *usecase.ChatUseCase) error {
		return response.Success(c, uc.State().Conversations)
	})
}

// OpenConversation creates (when needed) and selects the conversation with another user
func (h *ChatHandler) OpenConversation(c echo.Context) error {
	var req openConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		conv, err := uc.OpenConversation(c.Request().Context(), req.UserID)
		if err != nil {
			return response.Error(c, err)
		}
		return response.Created(c, conv)
	})
}

// SetCurrentConversation selects a conversation; an empty id deselects
func (h *ChatHandler) SetCurrentConversation(c echo.Context) error {
	var req currentConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		if err := uc.SetCurrentConversation(c.Request().Context(), req.ConversationID); err != nil {
			return response.Error(c, err)
		}
		return response.Success(c, uc.State())
	})
}

// GetMessages loads a conversation's cached page, or with load_more=true the
// page before it
func (h *ChatHandler) GetMessages(c echo.Context) error {
	conversationID := c.Param("id")
	loadMore, _ := strconv.ParseBool(c.QueryParam("load_more"))

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		if err := uc.LoadMessages(c.Request().Context(), conversationID, loadMore); err != nil {
			return response.Error(c, err)
		}

		st := uc.State()
		page := st.Pages[conversationID]
		messages := st.MessageCache[conversationID]
		if messages == nil {
			messages = []entity.Message{}
		}

		var nextCursor string
		if page.HasMore {
			nextCursor = utils.EncodeCursor(page.Cursor.Timestamp, page.Cursor.ID)
		}
		return response.Cursor(c, messages, nextCursor, page.HasMore)
	})
}

func (h *ChatHandler) MarkAsRead(c echo.Context) error {
	conversationID := c.Param("id")

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		if err := uc.MarkAsRead(c.Request().Context(), conversationID); err != nil {
			return response.Error(c, err)
		}
		return response.Success(c, map[string]interface{}{
			"conversation_id": conversationID,
			"read":            true,
		})
	})
}

func (h *ChatHandler) SetTyping(c echo.Context) error {
	var req typingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	conversationID := c.Param("id")

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		if err := uc.SetTyping(c.Request().Context(), conversationID, req.Typing); err != nil {
			return response.Error(c, err)
		}
		return response.Success(c, map[string]interface{}{
			"conversation_id": conversationID,
			"typing":          req.Typing,
		})
	})
}

func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	conversationID := c.Param("id")
	messageID := c.Param("messageId")

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		if err := uc.DeleteMessage(c.Request().Context(), messageID, conversationID); err != nil {
			return response.Error(c, err)
		}
		return response.Success(c, map[string]string{
			"message": "Message deleted successfully",
		})
	})
}

// SendMessage sends a message to another user
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		msg, err := uc.SendMessage(c.Request().Context(), usecase.SendMessageInput{
			ReceiverID: req.ReceiverID,
			Content:    req.Content,
			Type:       entity.MessageType(req.Type),
			Metadata:   req.Metadata,
		})
		if err != nil {
			return response.Error(c, err)
		}
		return response.Created(c, msg)
	})
}

// RetryMessage resends a failed optimistic message by its temporary id
func (h *ChatHandler) RetryMessage(c echo.Context) error {
	tempID := c.Param("id")

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		msg, err := uc.RetryMessage(c.Request().Context(), tempID)
		if err != nil {
			return response.Error(c, err)
		}
		return response.Created(c, msg)
	})
}

// UploadAttachment stores a multipart file and sends it as a message
func (h *ChatHandler) UploadAttachment(c echo.Context) error {
	receiverID := c.FormValue("receiver_id")
	if receiverID == "" {
		return response.Error(c, errors.BadRequest("receiver_id is required", nil))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("File is required", err))
	}
	if fileHeader.Size > maxAttachmentSize {
		return response.Error(c, errors.BadRequest("File is too large", nil))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read file", err))
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		msg, err := uc.UploadAttachment(c.Request().Context(), usecase.AttachmentInput{
			ReceiverID:  receiverID,
			Name:        fileHeader.Filename,
			ContentType: contentType,
			File:        file,
		})
		if err != nil {
			return response.Error(c, err)
		}
		return response.Created(c, msg)
	})
}

func (h *ChatHandler) GetUser(c echo.Context) error {
	userID := c.Param("id")

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		user, err := uc.FetchUserData(c.Request().Context(), userID)
		if err != nil {
			return response.Error(c, err)
		}
		return response.Success(c, user)
	})
}

func (h *ChatHandler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")

	return h.session(c, func(uc *usecase.ChatUseCase) error {
		users, err := uc.SearchUsers(c.Request().Context(), query)
		if err != nil {
			return response.Error(c, err)
		}
		return response.Success(c, users)
	})
}
