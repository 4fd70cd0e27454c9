package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quillchat/internal/infrastructure/ratelimit"
	"quillchat/internal/mocks"
	"quillchat/pkg/errors"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, c.Get("uid").(string))
}

func TestAuthenticate(t *testing.T) {
	verifier := new(mocks.IdentityProviderMock)
	verifier.On("VerifyToken", mock.Anything, "good").Return("u1", nil)
	verifier.On("VerifyToken", mock.Anything, "bad").Return("", errors.Unauthorized("Invalid or expired token", nil))
	m := NewAuthMiddleware(verifier)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"rejected token", "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := m.Authenticate(okHandler)(c)

			if tt.status == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, "u1", rec.Body.String())
				return
			}
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.Code)
		})
	}
}

func TestAuthenticateQueryToken(t *testing.T) {
	verifier := new(mocks.IdentityProviderMock)
	verifier.On("VerifyToken", mock.Anything, "good").Return("u1", nil).Once()
	m := NewAuthMiddleware(verifier)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ws?token=good", nil), rec)

	require.NoError(t, m.AuthenticateQuery(okHandler)(c))
	assert.Equal(t, "u1", rec.Body.String())

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/ws", nil), httptest.NewRecorder())
	assert.Error(t, m.AuthenticateQuery(okHandler)(c))
	verifier.AssertExpectations(t)
}

func TestRateLimitPerUser(t *testing.T) {
	rl := ratelimit.NewRateLimiter(30)
	handler := RateLimit(rl)(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e := echo.New()

	limited := 0
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.Set("uid", "u1")
		require.NoError(t, handler(c))
		if rec.Code == http.StatusTooManyRequests {
			limited++
			assert.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")
		}
	}
	assert.Positive(t, limited)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Set("uid", "u2")
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
