package repository

import (
	"context"

	"quillchat/internal/domain/entity"
)

type MessageRepository interface {
	// Create stores msg, assigning an id when it has none.
	Create(ctx context.Context, msg *entity.Message) error
	GetByID(ctx context.Context, id string) (*entity.Message, error)
	Delete(ctx context.Context, id string) error

	// ListPage returns up to limit messages of a conversation, newest first,
	// strictly older than before when before is not nil.
	ListPage(ctx context.Context, conversationID string, before *entity.MessageCursor, limit int) ([]entity.Message, error)
	// ListUnread returns the unread messages received by receiverID, limited
	// to one conversation unless conversationID is empty.
	ListUnread(ctx context.Context, receiverID, conversationID string) ([]entity.Message, error)
	MarkRead(ctx context.Context, ids []string) error

	// ListenLatest delivers the newest message of a conversation every time it
	// changes.
	ListenLatest(ctx context.Context, conversationID string, onMessage func(entity.Message), onError func(error)) Unsubscribe
}
