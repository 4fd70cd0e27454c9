package repository

import (
	"context"

	"quillchat/internal/domain/entity"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
}
