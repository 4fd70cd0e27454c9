package firebase

import (
	"context"

	"quillchat/pkg/errors"
)

// GenerateDevToken mints a custom token for uid. Clients exchange it for an
// ID token with the Firebase client SDK.
func (f *FirebaseAuthClient) GenerateDevToken(ctx context.Context, uid string) (string, error) {
	if _, err := f.Identity(ctx, uid); err != nil {
		return "", err
	}

	customToken, err := f.client.CustomTokenWithClaims(ctx, uid, map[string]interface{}{
		"dev": true,
	})
	if err != nil {
		return "", errors.Internal("Failed to generate token", err)
	}

	return customToken, nil
}
