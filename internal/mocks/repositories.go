package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"quillchat/internal/domain/entity"
	"quillchat/internal/domain/repository"
)

func unsubscribeOf(val interface{}) repository.Unsubscribe {
	switch fn := val.(type) {
	case repository.Unsubscribe:
		return fn
	case func():
		return fn
	}
	return func() {}
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	args := m.Called(ctx, id)
	var conv *entity.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(*entity.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) Ensure(ctx context.Context, id string, participants []string) error {
	args := m.Called(ctx, id, participants)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) RecordMessage(ctx context.Context, id string, participants []string, msg *entity.Message) error {
	args := m.Called(ctx, id, participants, msg)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) ResetUnread(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) SetLastMessage(ctx context.Context, id string, msg *entity.Message) error {
	args := m.Called(ctx, id, msg)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) SetTyping(ctx context.Context, id, userID string, typing bool) error {
	args := m.Called(ctx, id, userID, typing)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) ListenByParticipant(ctx context.Context, userID string, onChange func([]entity.Conversation), onError func(error)) repository.Unsubscribe {
	args := m.Called(ctx, userID, onChange, onError)
	return unsubscribeOf(args.Get(0))
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, msg *entity.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepositoryMock) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	args := m.Called(ctx, id)
	var msg *entity.Message
	if val := args.Get(0); val != nil {
		msg = val.(*entity.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListPage(ctx context.Context, conversationID string, before *entity.MessageCursor, limit int) ([]entity.Message, error) {
	args := m.Called(ctx, conversationID, before, limit)
	var list []entity.Message
	if val := args.Get(0); val != nil {
		list = val.([]entity.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) ListUnread(ctx context.Context, receiverID, conversationID string) ([]entity.Message, error) {
	args := m.Called(ctx, receiverID, conversationID)
	var list []entity.Message
	if val := args.Get(0); val != nil {
		list = val.([]entity.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListenLatest(ctx context.Context, conversationID string, onMessage func(entity.Message), onError func(error)) repository.Unsubscribe {
	args := m.Called(ctx, conversationID, onMessage, onError)
	return unsubscribeOf(args.Get(0))
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, id string) (*entity.ChatUser, error) {
	args := m.Called(ctx, id)
	var user *entity.ChatUser
	if val := args.Get(0); val != nil {
		user = val.(*entity.ChatUser)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetMany(ctx context.Context, ids []string) ([]entity.ChatUser, error) {
	args := m.Called(ctx, ids)
	var list []entity.ChatUser
	if val := args.Get(0); val != nil {
		list = val.([]entity.ChatUser)
	}
	return list, args.Error(1)
}

func (m *UserRepositoryMock) SearchByDisplayName(ctx context.Context, prefix string, limit int) ([]entity.ChatUser, error) {
	args := m.Called(ctx, prefix, limit)
	var list []entity.ChatUser
	if val := args.Get(0); val != nil {
		list = val.([]entity.ChatUser)
	}
	return list, args.Error(1)
}

func (m *UserRepositoryMock) Upsert(ctx context.Context, user *entity.ChatUser) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetPresence(ctx context.Context, id string, online bool, at time.Time) error {
	args := m.Called(ctx, id, online, at)
	return args.Error(0)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, notification *entity.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}
