package response

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/lib/password"
	"github.com/magabrotheeeer/phone-auth/internal/lib/phone"
)

func TestRenderError_Statuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid credentials", apperr.ErrInvalidCredentials, 401},
		{"wrapped invalid credentials", fmt.Errorf("auth.Login: %w", apperr.ErrInvalidCredentials), 401},
		{"locked", apperr.ErrAccountLocked, 401},
		{"suspended", apperr.ErrAccountSuspended, 403},
		{"forbidden", apperr.ErrForbidden, 403},
		{"phone taken", apperr.ErrPhoneTaken, 409},
		{"user not found", apperr.ErrUserNotFound, 404},
		{"session revoked", apperr.ErrSessionRevoked, 401},
		{"invalid token", apperr.ErrInvalidToken, 401},
		{"otp rejected", apperr.ErrOtpRejected, 401},
		{"otp exhausted", apperr.ErrOtpExhausted, 401},
		{"delivery failed", apperr.ErrDeliveryFailed, 502},
		{"invalid phone", phone.ErrInvalidFormat, 422},
		{"unsupported region", phone.ErrUnsupportedRegion, 422},
		{"not mobile", phone.ErrNotMobile, 422},
		{"unknown error", fmt.Errorf("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/", nil)
			RenderError(w, r, tt.err)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRenderError_RateLimit(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	RenderError(w, r, &apperr.RateLimitError{RetryAfter: 90 * time.Second})

	assert.Equal(t, 429, w.Code)
	assert.Equal(t, "90", w.Header().Get("Retry-After"))

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusError, resp.Status)
}

func TestRenderError_OtpAttempts(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	RenderError(w, r, &apperr.OtpAttemptsError{Remaining: 2})

	assert.Equal(t, 401, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["attempts_remaining"])
}

func TestRenderError_PasswordPolicy(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	RenderError(w, r, &password.PolicyError{Violations: []string{"too short", "missing digit"}})

	assert.Equal(t, 422, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Len(t, data["violations"], 2)
}

func TestOKWithData(t *testing.T) {
	resp := OKWithData(map[string]any{"key": "value"})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.NotNil(t, resp.Data)
}
