package repository

import (
	"context"

	"quillchat/internal/domain/entity"
)

// Unsubscribe detaches a snapshot listener. Calling it more than once is safe.
type Unsubscribe func()

type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	// Ensure creates the conversation document if it does not exist yet.
	Ensure(ctx context.Context, id string, participants []string) error
	// RecordMessage merges msg as the last message of the conversation and
	// increments the unread counter of msg.ReceiverID.
	RecordMessage(ctx context.Context, id string, participants []string, msg *entity.Message) error
	ResetUnread(ctx context.Context, id, userID string) error
	// SetLastMessage replaces the last message; nil removes the field.
	SetLastMessage(ctx context.Context, id string, msg *entity.Message) error
	SetTyping(ctx context.Context, id, userID string, typing bool) error

	// ListenByParticipant delivers the full list of userID's conversations,
	// newest activity first, on every change. onError is called once when the
	// listener stops with an error; the listener is dead afterwards.
	ListenByParticipant(ctx context.Context, userID string, onChange func([]entity.Conversation), onError func(error)) Unsubscribe
}
