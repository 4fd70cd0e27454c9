package repository

import (
	"context"
	"time"

	"quillchat/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.ChatUser, error)
	// GetMany fetches users in one round trip. Unknown ids are skipped.
	GetMany(ctx context.Context, ids []string) ([]entity.ChatUser, error)
	SearchByDisplayName(ctx context.Context, prefix string, limit int) ([]entity.ChatUser, error)
	Upsert(ctx context.Context, user *entity.ChatUser) error
	SetPresence(ctx context.Context, id string, online bool, at time.Time) error
}
