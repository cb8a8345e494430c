// Package otp содержит логику выпуска и проверки одноразовых кодов.
//
// Жизненный цикл записи: выдана -> подтверждена (успех) либо
// выдана -> истекла / попытки исчерпаны (отказ). Из терминальных состояний
// переходов нет: подтверждённый код нельзя потребить повторно, а после
// исчерпания попыток не принимается даже верный код.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/magabrotheeeer/phone-auth/internal/config"
	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/metrics"
	"github.com/magabrotheeeer/phone-auth/internal/models"
	"github.com/magabrotheeeer/phone-auth/internal/ratelimit"
)

// OtpRepository описывает контракт для работы с кодами в базе данных.
type OtpRepository interface {
	SaveOtp(ctx context.Context, record models.OtpRecord) (string, error)
	GetOtp(ctx context.Context, otpUID string) (*models.OtpRecord, error)
	RegisterOtpAttempt(ctx context.Context, otpUID string) (int, error)
	ConsumeOtp(ctx context.Context, otpUID string) error
}

// Limiter описывает проверки лимитов, которыми гейтится выпуск кодов.
type Limiter interface {
	CheckFixed(ctx context.Context, key string, limit int, window time.Duration) error
	CheckSliding(ctx context.Context, key string, limit int, window time.Duration) error
}

// Sender описывает внешний канал доставки кода на телефон.
type Sender interface {
	Send(ctx context.Context, phone, templateID, code string) error
}

// Service реализует движок одноразовых кодов.
type Service struct {
	repo    OtpRepository
	limiter Limiter
	sender  Sender
	log     *slog.Logger
	cfg     config.OTP
	limits  config.RateLimits
}

// New создает новый экземпляр Service.
func New(repo OtpRepository, limiter Limiter, sender Sender, log *slog.Logger,
	cfg config.OTP, limits config.RateLimits) *Service {
	return &Service{
		repo:    repo,
		limiter: limiter,
		sender:  sender,
		log:     log,
		cfg:     cfg,
		limits:  limits,
	}
}

// Issued описывает результат выпуска кода. Сам код наружу не возвращается,
// только идентификатор верификации и срок действия.
type Issued struct {
	VerificationUID string
	ExpiresAt       time.Time
}

// Issue выпускает код для телефона и назначения. Перед генерацией
// проверяются независимые лимиты по телефону+назначению и по IP.
func (s *Service) Issue(ctx context.Context, phoneNumber, purpose, ip string, userUID *string) (*Issued, error) {
	const op = "otp.Issue"

	if err := s.limiter.CheckFixed(ctx,
		ratelimit.OtpPhoneKey(phoneNumber, purpose),
		s.limits.OtpPerPhone, s.limits.OtpPerPhoneWindow); err != nil {
		metrics.RateLimitDenials.WithLabelValues("otp_phone").Inc()
		return nil, err
	}
	if err := s.limiter.CheckSliding(ctx,
		ratelimit.OtpIPKey(ip),
		s.limits.OtpPerIP, s.limits.OtpPerIPWindow); err != nil {
		metrics.RateLimitDenials.WithLabelValues("otp_ip").Inc()
		return nil, err
	}

	code, err := generateCode(s.cfg.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := time.Now().UTC().Add(s.cfg.TTL)
	uid, err := s.repo.SaveOtp(ctx, models.OtpRecord{
		UserUID:     userUID,
		Phone:       phoneNumber,
		Code:        code,
		Purpose:     purpose,
		MaxAttempts: s.cfg.MaxAttempts,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sender.Send(ctx, phoneNumber, "otp_"+purpose, code); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.OtpIssued.WithLabelValues(purpose).Inc()
	s.log.Info("otp issued",
		slog.String("op", op),
		slog.String("purpose", purpose),
		slog.String("verification_uid", uid))
	return &Issued{VerificationUID: uid, ExpiresAt: expiresAt}, nil
}

// Verify проверяет код. Уже подтверждённая или истёкшая запись отклоняется
// сразу, без увеличения счётчика попыток. Неверный код увеличивает счётчик
// и возвращает число оставшихся попыток; на попытке, исчерпавшей предел,
// запись сгорает безвозвратно. Сравнение кода выполняется за постоянное
// время, а потребление — условным UPDATE, поэтому даже при конкурентной
// подаче верного кода подтверждение случится ровно один раз.
func (s *Service) Verify(ctx context.Context, verificationUID, code, phoneNumber string) (*models.OtpRecord, error) {
	const op = "otp.Verify"

	record, err := s.repo.GetOtp(ctx, verificationUID)
	if err != nil {
		metrics.OtpVerifications.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if phoneNumber != "" && record.Phone != phoneNumber {
		metrics.OtpVerifications.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrOtpRejected)
	}
	if !record.Consumable(time.Now().UTC()) {
		metrics.OtpVerifications.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrOtpRejected)
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		remaining, err := s.repo.RegisterOtpAttempt(ctx, verificationUID)
		if err != nil {
			metrics.OtpVerifications.WithLabelValues("rejected").Inc()
			return nil, err
		}
		if remaining == 0 {
			metrics.OtpVerifications.WithLabelValues("exhausted").Inc()
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrOtpExhausted)
		}
		metrics.OtpVerifications.WithLabelValues("rejected").Inc()
		return nil, &apperr.OtpAttemptsError{Remaining: remaining}
	}

	if err := s.repo.ConsumeOtp(ctx, verificationUID); err != nil {
		metrics.OtpVerifications.WithLabelValues("rejected").Inc()
		return nil, err
	}

	metrics.OtpVerifications.WithLabelValues("consumed").Inc()
	return record, nil
}

// RequireConsumed проверяет и потребляет код, дополнительно сверяя
// назначение и телефон. Используется переходами, которые требуют
// подтверждённый код: регистрацией и сменой номера.
func (s *Service) RequireConsumed(ctx context.Context, verificationUID, code, phoneNumber, purpose string) (*models.OtpRecord, error) {
	const op = "otp.RequireConsumed"

	record, err := s.Verify(ctx, verificationUID, code, phoneNumber)
	if err != nil {
		return nil, err
	}
	if record.Purpose != purpose {
		// Код уже потреблён, но назначение не совпало: операция отклоняется,
		// повторно код использовать всё равно нельзя.
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrOtpRejected)
	}
	return record, nil
}

// generateCode генерирует численный код фиксированной длины из равномерного
// криптографического источника. Ведущие нули допустимы.
func generateCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
