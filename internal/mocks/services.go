package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"quillchat/internal/domain/entity"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type IdentityProviderMock struct {
	mock.Mock
}

func (m *IdentityProviderMock) VerifyToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *IdentityProviderMock) Identity(ctx context.Context, uid string) (*entity.Identity, error) {
	args := m.Called(ctx, uid)
	var identity *entity.Identity
	if val := args.Get(0); val != nil {
		identity = val.(*entity.Identity)
	}
	return identity, args.Error(1)
}

type AttachmentStoreMock struct {
	mock.Mock
}

func (m *AttachmentStoreMock) UploadAttachment(ctx context.Context, file io.Reader, name, contentType, folder string) (*entity.Attachment, error) {
	args := m.Called(ctx, file, name, contentType, folder)
	var attachment *entity.Attachment
	if val := args.Get(0); val != nil {
		attachment = val.(*entity.Attachment)
	}
	return attachment, args.Error(1)
}
