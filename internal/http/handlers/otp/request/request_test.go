package request

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
	"github.com/magabrotheeeer/phone-auth/internal/lib/phone"
	"github.com/magabrotheeeer/phone-auth/internal/models"
	otpservice "github.com/magabrotheeeer/phone-auth/internal/services/otp"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Issue(ctx context.Context, phoneNumber, purpose, ip string, userUID *string) (*otpservice.Issued, error) {
	args := m.Called(ctx, phoneNumber, purpose, ip, userUID)
	issued, _ := args.Get(0).(*otpservice.Issued)
	return issued, args.Error(1)
}

type NormalizerMock struct {
	mock.Mock
}

func (m *NormalizerMock) Normalize(raw string) (string, error) {
	args := m.Called(raw)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func doRequest(t *testing.T, svc *ServiceMock, normalizer *NormalizerMock, body any) *httptest.ResponseRecorder {
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

	req := httptest.NewRequest(http.MethodPost, "/otp/request", bytes.NewReader(bodyBytes))
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
	rec := httptest.NewRecorder()

	New(newNoopLogger(), svc, normalizer).ServeHTTP(rec, req)
	return rec
}

func TestHandler_ServeHTTP(t *testing.T) {
	t.Run("code issued", func(t *testing.T) {
		svc := new(ServiceMock)
		normalizer := new(NormalizerMock)
		normalizer.On("Normalize", "8 999 123-45-67").Return("+79991234567", nil).Once()
		svc.On("Issue", mock.Anything, "+79991234567", models.PurposeRegistration,
			mock.Anything, (*string)(nil)).
			Return(&otpservice.Issued{
				VerificationUID: "otp-1",
				ExpiresAt:       time.Now().UTC().Add(5 * time.Minute),
			}, nil).Once()

		rec := doRequest(t, svc, normalizer, Request{Phone: "8 999 123-45-67", Purpose: "registration"})

		assert.Equal(t, http.StatusOK, rec.Code)
		var got map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		data := got["data"].(map[string]any)
		assert.Equal(t, "otp-1", data["verification_id"])
		assert.NotEmpty(t, data["expires_at"])
		svc.AssertExpectations(t)
		normalizer.AssertExpectations(t)
	})

	t.Run("unknown purpose", func(t *testing.T) {
		rec := doRequest(t, new(ServiceMock), new(NormalizerMock),
			Request{Phone: "+79991234567", Purpose: "teleport"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("invalid phone", func(t *testing.T) {
		normalizer := new(NormalizerMock)
		normalizer.On("Normalize", "garbage").Return("", phone.ErrInvalidFormat).Once()

		rec := doRequest(t, new(ServiceMock), normalizer,
			Request{Phone: "garbage", Purpose: "registration"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		svc := new(ServiceMock)
		normalizer := new(NormalizerMock)
		normalizer.On("Normalize", mock.Anything).Return("+79991234567", nil).Once()
		svc.On("Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &apperr.RateLimitError{RetryAfter: 10 * time.Minute}).Once()

		rec := doRequest(t, svc, normalizer, Request{Phone: "+79991234567", Purpose: "registration"})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "600", rec.Header().Get("Retry-After"))
	})

	t.Run("delivery failed", func(t *testing.T) {
		svc := new(ServiceMock)
		normalizer := new(NormalizerMock)
		normalizer.On("Normalize", mock.Anything).Return("+79991234567", nil).Once()
		svc.On("Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperr.ErrDeliveryFailed).Once()

		rec := doRequest(t, svc, normalizer, Request{Phone: "+79991234567", Purpose: "registration"})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
