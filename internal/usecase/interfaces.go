package usecase

import (
	"context"
	"io"

	"quillchat/internal/domain/entity"
)

// IdentityProvider resolves signed-in users.
type IdentityProvider interface {
	VerifyToken(ctx context.Context, token string) (string, error)
	Identity(ctx context.Context, uid string) (*entity.Identity, error)
}

// AttachmentStore stores files shared in conversations.
type AttachmentStore interface {
	UploadAttachment(ctx context.Context, file io.Reader, name, contentType, folder string) (*entity.Attachment, error)
}

// EventPublisher fans out chat events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}
