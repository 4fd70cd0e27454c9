package usecase

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"quillchat/internal/domain/entity"
	"quillchat/internal/domain/state"
	"quillchat/internal/infrastructure/metrics"
	"quillchat/internal/infrastructure/rabbitmq"
	"quillchat/internal/infrastructure/ratelimit"
	"quillchat/pkg/errors"
	"quillchat/pkg/logger"
)

const (
	maxContentLength = 4000
	previewLength    = 100
)

type SendMessageInput struct {
	ReceiverID string
	Content    string
	Type       entity.MessageType
	Metadata   map[string]interface{}
}

type AttachmentInput struct {
	ReceiverID  string
	Name        string
	ContentType string
	File        io.Reader
}

// SendMessage appends an optimistic message to the state before anything is
// written, then stores the message, records it on the conversation and
// notifies the receiver. When storing fails the optimistic message stays in
// the state marked failed and can be resent with RetryMessage.
func (uc *ChatUseCase) SendMessage(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	if err := uc.validateSend(&input); err != nil {
		return nil, uc.fail("SendMessage", err)
	}

	allowed, waitTime := uc.rateLimiter.Allow(uc.identity.UID, ratelimit.ActionSendMessage)
	if !allowed {
		logger.Warn("SendMessage Rate Limited: User %s must wait %v", uc.identity.UID, waitTime)
		return nil, uc.fail("SendMessage", errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message", waitTime))
	}

	conversationID := entity.ConversationID(uc.identity.UID, input.ReceiverID)
	optimistic := entity.Message{
		ID:             entity.TempIDPrefix + uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       uc.identity.UID,
		ReceiverID:     input.ReceiverID,
		Content:        input.Content,
		Timestamp:      uc.now(),
		Type:           input.Type,
		Metadata:       input.Metadata,
		Status:         entity.MessageStatusPending,
	}

	uc.mu.Lock()
	uc.pending[optimistic.ID] = &pendingSend{message: optimistic, inFlight: true}
	uc.mu.Unlock()

	uc.store.Dispatch(state.MessageSent{
		ConversationID: conversationID,
		Message:        optimistic,
		Participants:   entity.SortedParticipants(uc.identity.UID, input.ReceiverID),
	})

	return uc.persist(ctx, optimistic)
}

// RetryMessage resends an optimistic message whose send failed.
func (uc *ChatUseCase) RetryMessage(ctx context.Context, tempID string) (*entity.Message, error) {
	uc.mu.Lock()
	p, ok := uc.pending[tempID]
	var retryErr error
	switch {
	case !ok:
		retryErr = errors.NotFound("Message", nil)
	case p.inFlight:
		retryErr = errors.BadRequest("Message is still being sent", nil)
	default:
		p.inFlight = true
	}
	uc.mu.Unlock()
	if retryErr != nil {
		return nil, uc.fail("RetryMessage", retryErr)
	}

	allowed, waitTime := uc.rateLimiter.Allow(uc.identity.UID, ratelimit.ActionSendMessage)
	if !allowed {
		uc.mu.Lock()
		p.inFlight = false
		uc.mu.Unlock()
		return nil, uc.fail("RetryMessage", errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message", waitTime))
	}

	uc.store.Dispatch(state.MessageRetrying{ConversationID: p.message.ConversationID, TempID: tempID})
	return uc.persist(ctx, p.message)
}

func (uc *ChatUseCase) persist(ctx context.Context, optimistic entity.Message) (*entity.Message, error) {
	stored := optimistic
	stored.ID = ""
	stored.Status = ""

	if err := uc.messageRepo.Create(ctx, &stored); err != nil {
		uc.mu.Lock()
		if p, ok := uc.pending[optimistic.ID]; ok {
			p.inFlight = false
		}
		uc.mu.Unlock()

		metrics.IncSendFailure()
		uc.store.Dispatch(state.MessageFailed{ConversationID: optimistic.ConversationID, TempID: optimistic.ID})
		return nil, uc.fail("SendMessage", err)
	}

	uc.mu.Lock()
	delete(uc.pending, optimistic.ID)
	uc.mu.Unlock()

	stored.Status = entity.MessageStatusSent
	uc.store.Dispatch(state.MessageConfirmed{
		ConversationID: optimistic.ConversationID,
		TempID:         optimistic.ID,
		Message:        stored,
	})

	participants := entity.SortedParticipants(stored.SenderID, stored.ReceiverID)
	if err := uc.conversationRepo.RecordMessage(ctx, stored.ConversationID, participants, &stored); err != nil {
		return &stored, uc.fail("SendMessage", err)
	}

	uc.notify(ctx, &stored)
	return &stored, nil
}

func (uc *ChatUseCase) validateSend(input *SendMessageInput) error {
	input.Content = strings.TrimSpace(input.Content)
	if input.Type == "" {
		input.Type = entity.MessageTypeText
	}

	switch {
	case input.ReceiverID == "":
		return errors.BadRequest("Receiver is required", nil)
	case input.ReceiverID == uc.identity.UID:
		return errors.BadRequest("You cannot send a message to yourself", nil)
	case !input.Type.Valid():
		return errors.BadRequest(fmt.Sprintf("Unsupported message type %q", input.Type), nil)
	case input.Type == entity.MessageTypeText && input.Content == "":
		return errors.BadRequest("Message content cannot be empty", nil)
	case utf8.RuneCountInString(input.Content) > maxContentLength:
		return errors.BadRequest("Message content is too long", nil)
	}
	return nil
}

// notify stores the receiver's notification and publishes it. Failures are
// logged only; the message itself is already delivered.
func (uc *ChatUseCase) notify(ctx context.Context, msg *entity.Message) {
	notification := &entity.Notification{
		UserID:         msg.ReceiverID,
		Type:           entity.NotificationTypeMessage,
		ActorID:        msg.SenderID,
		ActorName:      uc.identity.DisplayName,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Preview:        preview(msg),
		CreatedAt:      uc.now(),
	}

	if err := uc.notificationRepo.Create(ctx, notification); err != nil {
		log.Printf("SendMessage Error: Failed to create notification for message %s: %v", msg.ID, err)
		return
	}
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, rabbitmq.RoutingKeyNotificationCreated, notification); err != nil {
		log.Printf("SendMessage Error: Failed to publish notification %s: %v", notification.ID, err)
	}
}

func preview(msg *entity.Message) string {
	switch msg.Type {
	case entity.MessageTypeImage:
		return "Sent an image"
	case entity.MessageTypeFile:
		return "Sent a file"
	}

	if utf8.RuneCountInString(msg.Content) <= previewLength {
		return msg.Content
	}
	runes := []rune(msg.Content)
	return string(runes[:previewLength]) + "..."
}

// UploadAttachment stores a file and sends it as an image or file message.
func (uc *ChatUseCase) UploadAttachment(ctx context.Context, input AttachmentInput) (*entity.Message, error) {
	if uc.attachments == nil {
		return nil, uc.fail("UploadAttachment", errors.Internal("Attachments are not configured", nil))
	}
	if input.ReceiverID == "" || input.ReceiverID == uc.identity.UID {
		return nil, uc.fail("UploadAttachment", errors.BadRequest("A valid receiver is required", nil))
	}
	if input.Name == "" || input.File == nil {
		return nil, uc.fail("UploadAttachment", errors.BadRequest("File is required", nil))
	}

	folder := "attachments/" + entity.ConversationID(uc.identity.UID, input.ReceiverID)
	attachment, err := uc.attachments.UploadAttachment(ctx, input.File, input.Name, input.ContentType, folder)
	if err != nil {
		return nil, uc.fail("UploadAttachment", errors.Internal("Failed to upload attachment", err))
	}

	return uc.SendMessage(ctx, SendMessageInput{
		ReceiverID: input.ReceiverID,
		Content:    attachment.Name,
		Type:       entity.MessageTypeFor(attachment.ContentType),
		Metadata:   attachment.Metadata(),
	})
}
