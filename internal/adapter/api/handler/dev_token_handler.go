package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"quillchat/pkg/errors"
	"quillchat/pkg/response"
)

// DevTokenIssuer mints custom tokens for existing users.
type DevTokenIssuer interface {
	GenerateDevToken(ctx context.Context, uid string) (string, error)
}

type DevTokenHandler struct {
	issuer DevTokenIssuer
}

type devTokenRequest struct {
	UID string `json:"uid" validate:"required"`
}

func NewDevTokenHandler(issuer DevTokenIssuer) *DevTokenHandler {
	return &DevTokenHandler{
		issuer: issuer,
	}
}

// GenerateToken returns a custom token for the given uid. The client signs in
// with it to obtain an ID token.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	token, err := h.issuer.GenerateDevToken(c.Request().Context(), req.UID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"custom_token": token,
		"uid":          req.UID,
	})
}
