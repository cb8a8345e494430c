package otp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/phone-auth/internal/config"
	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/models"
)

type OtpRepoMock struct {
	mock.Mock
}

func (m *OtpRepoMock) SaveOtp(ctx context.Context, record models.OtpRecord) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

func (m *OtpRepoMock) GetOtp(ctx context.Context, otpUID string) (*models.OtpRecord, error) {
	args := m.Called(ctx, otpUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OtpRecord), args.Error(1)
}

func (m *OtpRepoMock) RegisterOtpAttempt(ctx context.Context, otpUID string) (int, error) {
	args := m.Called(ctx, otpUID)
	return args.Int(0), args.Error(1)
}

func (m *OtpRepoMock) ConsumeOtp(ctx context.Context, otpUID string) error {
	args := m.Called(ctx, otpUID)
	return args.Error(0)
}

type LimiterMock struct {
	mock.Mock
}

func (m *LimiterMock) CheckFixed(ctx context.Context, key string, limit int, window time.Duration) error {
	args := m.Called(ctx, key, limit, window)
	return args.Error(0)
}

func (m *LimiterMock) CheckSliding(ctx context.Context, key string, limit int, window time.Duration) error {
	args := m.Called(ctx, key, limit, window)
	return args.Error(0)
}

type SenderMock struct {
	mock.Mock
}

func (m *SenderMock) Send(ctx context.Context, phone, templateID, code string) error {
	args := m.Called(ctx, phone, templateID, code)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testService(repo *OtpRepoMock, limiter *LimiterMock, sender *SenderMock) *Service {
	return New(repo, limiter, sender, newNoopLogger(),
		config.OTP{CodeLength: 6, TTL: 5 * time.Minute, MaxAttempts: 5},
		config.RateLimits{
			OtpPerPhone: 5, OtpPerPhoneWindow: time.Hour,
			OtpPerIP: 10, OtpPerIPWindow: time.Hour,
		})
}

func consumableRecord(code string) *models.OtpRecord {
	return &models.OtpRecord{
		UID:         "otp-1",
		Phone:       "+79991234567",
		Code:        code,
		Purpose:     models.PurposeRegistration,
		Attempts:    0,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().UTC().Add(5 * time.Minute),
	}
}

func TestService_Issue(t *testing.T) {
	repo := new(OtpRepoMock)
	limiter := new(LimiterMock)
	sender := new(SenderMock)

	limiter.On("CheckFixed", mock.Anything, "otp:registration:+79991234567", 5, time.Hour).
		Return(nil).Once()
	limiter.On("CheckSliding", mock.Anything, "otp:ip:10.0.0.1", 10, time.Hour).
		Return(nil).Once()
	repo.On("SaveOtp", mock.Anything, mock.MatchedBy(func(r models.OtpRecord) bool {
		return r.Phone == "+79991234567" &&
			r.Purpose == models.PurposeRegistration &&
			len(r.Code) == 6 &&
			r.MaxAttempts == 5
	})).Return("otp-1", nil).Once()
	sender.On("Send", mock.Anything, "+79991234567", "otp_registration", mock.Anything).
		Return(nil).Once()

	svc := testService(repo, limiter, sender)
	issued, err := svc.Issue(context.Background(), "+79991234567", models.PurposeRegistration, "10.0.0.1", nil)

	require.NoError(t, err)
	assert.Equal(t, "otp-1", issued.VerificationUID)
	assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), issued.ExpiresAt, 5*time.Second)
	repo.AssertExpectations(t)
	limiter.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestService_Issue_RateLimited(t *testing.T) {
	repo := new(OtpRepoMock)
	limiter := new(LimiterMock)
	sender := new(SenderMock)

	limiter.On("CheckFixed", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&apperr.RateLimitError{RetryAfter: 10 * time.Minute}).Once()

	svc := testService(repo, limiter, sender)
	_, err := svc.Issue(context.Background(), "+79991234567", models.PurposeRegistration, "10.0.0.1", nil)

	var rlErr *apperr.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 10*time.Minute, rlErr.RetryAfter)
	repo.AssertNotCalled(t, "SaveOtp", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Issue_DeliveryFailed(t *testing.T) {
	repo := new(OtpRepoMock)
	limiter := new(LimiterMock)
	sender := new(SenderMock)

	limiter.On("CheckFixed", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	limiter.On("CheckSliding", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("SaveOtp", mock.Anything, mock.Anything).Return("otp-1", nil).Once()
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(apperr.ErrDeliveryFailed).Once()

	svc := testService(repo, limiter, sender)
	_, err := svc.Issue(context.Background(), "+79991234567", models.PurposeRegistration, "10.0.0.1", nil)
	require.ErrorIs(t, err, apperr.ErrDeliveryFailed)
}

func TestService_Verify(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		phone      string
		setupMocks func(r *OtpRepoMock)
		wantErr    error
		wantRemain int
	}{
		{
			name:  "correct code consumed",
			code:  "123456",
			phone: "+79991234567",
			setupMocks: func(r *OtpRepoMock) {
				r.On("GetOtp", mock.Anything, "otp-1").Return(consumableRecord("123456"), nil).Once()
				r.On("ConsumeOtp", mock.Anything, "otp-1").Return(nil).Once()
			},
		},
		{
			name:  "wrong code increments attempts",
			code:  "000000",
			phone: "+79991234567",
			setupMocks: func(r *OtpRepoMock) {
				r.On("GetOtp", mock.Anything, "otp-1").Return(consumableRecord("123456"), nil).Once()
				r.On("RegisterOtpAttempt", mock.Anything, "otp-1").Return(3, nil).Once()
			},
			wantErr:    apperr.ErrOtpRejected,
			wantRemain: 3,
		},
		{
			name:  "wrong code on last attempt exhausts the record",
			code:  "000000",
			phone: "+79991234567",
			setupMocks: func(r *OtpRepoMock) {
				r.On("GetOtp", mock.Anything, "otp-1").Return(consumableRecord("123456"), nil).Once()
				r.On("RegisterOtpAttempt", mock.Anything, "otp-1").Return(0, nil).Once()
			},
			wantErr: apperr.ErrOtpExhausted,
		},
		{
			name:  "already verified rejected without attempt increment",
			code:  "123456",
			phone: "+79991234567",
			setupMocks: func(r *OtpRepoMock) {
				rec := consumableRecord("123456")
				verifiedAt := time.Now().UTC().Add(-time.Minute)
				rec.VerifiedAt = &verifiedAt
				r.On("GetOtp", mock.Anything, "otp-1").Return(rec, nil).Once()
			},
			wantErr: apperr.ErrOtpRejected,
		},
		{
			name:  "expired rejected without attempt increment",
			code:  "123456",
			phone: "+79991234567",
			setupMocks: func(r *OtpRepoMock) {
				rec := consumableRecord("123456")
				rec.ExpiresAt = time.Now().UTC().Add(-time.Minute)
				r.On("GetOtp", mock.Anything, "otp-1").Return(rec, nil).Once()
			},
			wantErr: apperr.ErrOtpRejected,
		},
		{
			name:  "phone mismatch rejected",
			code:  "123456",
			phone: "+70000000000",
			setupMocks: func(r *OtpRepoMock) {
				r.On("GetOtp", mock.Anything, "otp-1").Return(consumableRecord("123456"), nil).Once()
			},
			wantErr: apperr.ErrOtpRejected,
		},
		{
			name:  "correct code loses the consume race",
			code:  "123456",
			phone: "+79991234567",
			setupMocks: func(r *OtpRepoMock) {
				r.On("GetOtp", mock.Anything, "otp-1").Return(consumableRecord("123456"), nil).Once()
				r.On("ConsumeOtp", mock.Anything, "otp-1").Return(apperr.ErrOtpRejected).Once()
			},
			wantErr: apperr.ErrOtpRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(OtpRepoMock)
			tt.setupMocks(repo)
			svc := testService(repo, new(LimiterMock), new(SenderMock))

			record, err := svc.Verify(context.Background(), "otp-1", tt.code, tt.phone)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, models.PurposeRegistration, record.Purpose)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.wantRemain > 0 {
					var attemptsErr *apperr.OtpAttemptsError
					require.True(t, errors.As(err, &attemptsErr))
					assert.Equal(t, tt.wantRemain, attemptsErr.Remaining)
				}
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_RequireConsumed_PurposeMismatch(t *testing.T) {
	repo := new(OtpRepoMock)
	repo.On("GetOtp", mock.Anything, "otp-1").Return(consumableRecord("123456"), nil).Once()
	repo.On("ConsumeOtp", mock.Anything, "otp-1").Return(nil).Once()

	svc := testService(repo, new(LimiterMock), new(SenderMock))
	_, err := svc.RequireConsumed(context.Background(), "otp-1", "123456", "+79991234567", models.PurposePhoneChange)
	require.ErrorIs(t, err, apperr.ErrOtpRejected)
}

func TestGenerateCode(t *testing.T) {
	code, err := generateCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}
}
