package register

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
	"github.com/magabrotheeeer/phone-auth/internal/lib/password"
	"github.com/magabrotheeeer/phone-auth/internal/models"
	sessionservice "github.com/magabrotheeeer/phone-auth/internal/services/session"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, rawPhone, rawPassword, verificationUID, code string,
	device models.Device, ip string) (*sessionservice.TokenPair, error) {
	args := m.Called(ctx, rawPhone, rawPassword, verificationUID, code, device, ip)
	pair, _ := args.Get(0).(*sessionservice.TokenPair)
	return pair, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func validBody() Request {
	return Request{
		Phone:          "+79991234567",
		Password:       "Tr0ub4dor&3!",
		VerificationID: "123e4567-e89b-12d3-a456-426614174000",
		Code:           "123456",
		Device:         models.Device{ID: "device-1", Type: "android", Name: "Pixel"},
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

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(bodyBytes))
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
	rec := httptest.NewRecorder()

	New(newNoopLogger(), svc).ServeHTTP(rec, req)
	return rec
}

func TestHandler_ServeHTTP(t *testing.T) {
	t.Run("valid registration", func(t *testing.T) {
		pair := &sessionservice.TokenPair{
			Session: &models.Session{
				UID: "s1", UserUID: "user-1", ExpiresAt: time.Now().UTC().Add(time.Hour),
			},
			AccessToken:  "access",
			RefreshToken: "refresh",
		}
		svc := new(ServiceMock)
		svc.On("Register", mock.Anything, "+79991234567", "Tr0ub4dor&3!",
			"123e4567-e89b-12d3-a456-426614174000", "123456",
			validBody().Device, mock.Anything).Return(pair, nil).Once()

		rec := doRequest(t, svc, validBody())

		assert.Equal(t, http.StatusOK, rec.Code)
		var got map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		data := got["data"].(map[string]any)
		assert.Equal(t, "access", data["access_token"])
		assert.Equal(t, "s1", data["session_id"])
		svc.AssertExpectations(t)
	})

	t.Run("invalid json body", func(t *testing.T) {
		rec := doRequest(t, new(ServiceMock), "{broken")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("verification id must be uuid", func(t *testing.T) {
		body := validBody()
		body.VerificationID = "not-a-uuid"
		rec := doRequest(t, new(ServiceMock), body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("phone taken", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperr.ErrPhoneTaken).Once()

		rec := doRequest(t, svc, validBody())
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("weak password returns violations", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &password.PolicyError{Violations: []string{"too short"}}).Once()

		rec := doRequest(t, svc, validBody())
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var got map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		data := got["data"].(map[string]any)
		assert.Len(t, data["violations"], 1)
	})

	t.Run("rejected otp", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperr.ErrOtpRejected).Once()

		rec := doRequest(t, svc, validBody())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
