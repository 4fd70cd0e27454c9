package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"quillchat/internal/domain/entity"
	"quillchat/pkg/errors"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken checks a Firebase ID token and returns its uid.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", errors.Unauthorized("Invalid or expired token", err)
	}

	return result.UID, nil
}

// Identity returns the profile of uid as known to the authentication provider.
func (f *FirebaseAuthClient) Identity(ctx context.Context, uid string) (*entity.Identity, error) {
	record, err := f.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user identity", err)
	}

	return &entity.Identity{
		UID:         record.UID,
		DisplayName: record.DisplayName,
		PhotoURL:    record.PhotoURL,
		Email:       record.Email,
	}, nil
}
