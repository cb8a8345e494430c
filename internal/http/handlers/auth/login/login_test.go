package login

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/models"
	sessionservice "github.com/magabrotheeeer/phone-auth/internal/services/session"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Login(ctx context.Context, rawPhone, rawPassword string,
	device models.Device, ip string) (*sessionservice.TokenPair, error) {
	args := m.Called(ctx, rawPhone, rawPassword, device, ip)
	pair, _ := args.Get(0).(*sessionservice.TokenPair)
	return pair, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func validBody() Request {
	return Request{
		Phone:    "+79991234567",
		Password: "Tr0ub4dor&3!",
		Device:   models.Device{ID: "device-1", Type: "ios", Name: "iPhone"},
	}
}

func testPair() *sessionservice.TokenPair {
	return &sessionservice.TokenPair{
		Session: &models.Session{
			UID:       "s1",
			UserUID:   "user-1",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		},
		AccessToken:  "access",
		RefreshToken: "refresh",
	}
}

func doRequest(t *testing.T, svc *ServiceMock, body any) *httptest.ResponseRecorder {
	t.Helper()

	var bodyBytes []byte
	switch v := body.(type) {
	case string:
		bodyBytes = []byte(v)
	default:
		var err error
		bodyBytes, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(bodyBytes))
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
	rec := httptest.NewRecorder()

	New(newNoopLogger(), svc).ServeHTTP(rec, req)
	return rec
}

func TestHandler_ServeHTTP(t *testing.T) {
	t.Run("valid login", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Login", mock.Anything, "+79991234567", "Tr0ub4dor&3!",
			validBody().Device, mock.Anything).Return(testPair(), nil).Once()

		rec := doRequest(t, svc, validBody())

		assert.Equal(t, http.StatusOK, rec.Code)
		var got map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "OK", got["status"])
		data := got["data"].(map[string]any)
		assert.Equal(t, "access", data["access_token"])
		assert.Equal(t, "refresh", data["refresh_token"])
		assert.Equal(t, "s1", data["session_id"])
		svc.AssertExpectations(t)
	})

	t.Run("invalid json body", func(t *testing.T) {
		rec := doRequest(t, new(ServiceMock), "not a json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		body := validBody()
		body.Password = ""
		rec := doRequest(t, new(ServiceMock), body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("bad device type", func(t *testing.T) {
		body := validBody()
		body.Device.Type = "toaster"
		rec := doRequest(t, new(ServiceMock), body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Login", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperr.ErrInvalidCredentials).Once()

		rec := doRequest(t, svc, validBody())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("suspended account", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Login", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperr.ErrAccountSuspended).Once()

		rec := doRequest(t, svc, validBody())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rate limited sets retry-after", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Login", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &apperr.RateLimitError{RetryAfter: 2 * time.Minute}).Once()

		rec := doRequest(t, svc, validBody())
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "120", rec.Header().Get("Retry-After"))
	})
}
