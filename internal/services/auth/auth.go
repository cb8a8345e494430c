// Package auth содержит логику бизнес-уровня для регистрации и входа
// пользователей. Вход дополнительно выполняет льготную реактивацию:
// деактивированная учётная запись и запрос на удаление внутри льготного
// периода отменяются успешным входом в рамках того же перехода.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/phone-auth/internal/audit"
	"github.com/magabrotheeeer/phone-auth/internal/config"
	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/lib/password"
	"github.com/magabrotheeeer/phone-auth/internal/lib/phone"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
	"github.com/magabrotheeeer/phone-auth/internal/metrics"
	"github.com/magabrotheeeer/phone-auth/internal/models"
	"github.com/magabrotheeeer/phone-auth/internal/ratelimit"
	sessionservice "github.com/magabrotheeeer/phone-auth/internal/services/session"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByPhone возвращает пользователя по каноническому телефону.
	GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error)

	// RegisterLoginFailure увеличивает счётчик неудачных попыток входа.
	RegisterLoginFailure(ctx context.Context, userUID string) (int, error)

	// RegisterLoginSuccess сбрасывает счётчик и выполняет льготную реактивацию.
	RegisterLoginSuccess(ctx context.Context, userUID string, grace time.Duration) (bool, error)
}

// OtpConsumer описывает потребление кода, которым авторизуется регистрация.
type OtpConsumer interface {
	RequireConsumed(ctx context.Context, verificationUID, code, phoneNumber, purpose string) (*models.OtpRecord, error)
}

// SessionCreator описывает выдачу сессии после успешной аутентификации.
type SessionCreator interface {
	Create(ctx context.Context, userUID, role string, device models.Device, ip string) (*sessionservice.TokenPair, error)
}

// Limiter описывает проверку лимита попыток входа.
type Limiter interface {
	CheckSliding(ctx context.Context, key string, limit int, window time.Duration) error
}

// Service отвечает за регистрацию и вход пользователей.
type Service struct {
	users      UserRepository
	otps       OtpConsumer
	sessions   SessionCreator
	limiter    Limiter
	policy     *password.Policy
	hasher     *password.Hasher
	normalizer *phone.Normalizer
	auditor    audit.Emitter
	log        *slog.Logger
	limits     config.RateLimits
	sessionCfg config.Sessions
	grace      time.Duration
}

// New создает новый экземпляр Service.
func New(users UserRepository, otps OtpConsumer, sessions SessionCreator, limiter Limiter,
	policy *password.Policy, hasher *password.Hasher, normalizer *phone.Normalizer,
	auditor audit.Emitter, log *slog.Logger,
	limits config.RateLimits, sessionCfg config.Sessions, lifecycle config.Lifecycle) *Service {
	return &Service{
		users:      users,
		otps:       otps,
		sessions:   sessions,
		limiter:    limiter,
		policy:     policy,
		hasher:     hasher,
		normalizer: normalizer,
		auditor:    auditor,
		log:        log,
		limits:     limits,
		sessionCfg: sessionCfg,
		grace:      lifecycle.DeletionGracePeriod,
	}
}

// Register создаёт пользователя по подтверждённому кодом телефону
// и сразу выдаёт ему сессию с парой токенов.
func (s *Service) Register(ctx context.Context, rawPhone, rawPassword, verificationUID, code string,
	device models.Device, ip string) (*sessionservice.TokenPair, error) {
	const op = "auth.Register"

	canonical, err := s.normalizer.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Validate(rawPassword); err != nil {
		return nil, err
	}
	if _, err := s.otps.RequireConsumed(ctx, verificationUID, code, canonical, models.PurposeRegistration); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	userUID, err := s.users.RegisterUser(ctx, models.User{
		Phone:         canonical,
		PasswordHash:  hashed,
		Role:          "user", // дефолтная роль при регистрации
		Status:        models.StatusActive,
		PhoneVerified: true,
	})
	if err != nil {
		return nil, err
	}

	pair, err := s.sessions.Create(ctx, userUID, "user", device, ip)
	if err != nil {
		return nil, err
	}

	s.auditor.Emit(models.AuditEvent{
		Actor:      userUID,
		Action:     "auth.register",
		Resource:   userUID,
		After:      models.StatusActive,
		IP:         ip,
		SessionUID: pair.Session.UID,
	})
	s.log.Info("user registered", slog.String("op", op), slog.String("user_uid", userUID))
	return pair, nil
}

// Login аутентифицирует пользователя по телефону и паролю и выдаёт сессию.
// Неуспех намеренно не различает неизвестный телефон и неверный пароль.
func (s *Service) Login(ctx context.Context, rawPhone, rawPassword string,
	device models.Device, ip string) (*sessionservice.TokenPair, error) {
	const op = "auth.Login"

	canonical, err := s.normalizer.Normalize(rawPhone)
	if err != nil {
		// Невалидный номер эквивалентен неизвестному: не раскрываем причину.
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrInvalidCredentials)
	}

	if err := s.limiter.CheckSliding(ctx,
		ratelimit.LoginKey(canonical, ip),
		s.limits.LoginPerPhone, s.limits.LoginWindow); err != nil {
		metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
		metrics.RateLimitDenials.WithLabelValues("login").Inc()
		return nil, err
	}

	user, err := s.users.GetUserByPhone(ctx, canonical)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrInvalidCredentials)
		}
		return nil, err
	}

	now := time.Now().UTC()
	if s.lockedOut(user, now) {
		metrics.LoginAttempts.WithLabelValues("locked").Inc()
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrAccountLocked)
	}

	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		if _, ferr := s.users.RegisterLoginFailure(ctx, user.UID); ferr != nil {
			s.log.Error("failed to register login failure", slog.String("op", op), sl.Err(ferr))
		}
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrInvalidCredentials)
	}

	switch user.Status {
	case models.StatusSuspended:
		if user.SuspensionUntil != nil && user.SuspensionUntil.After(now) {
			metrics.LoginAttempts.WithLabelValues("suspended").Inc()
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrAccountSuspended)
		}
	case models.StatusPendingDeletion:
		if user.PendingDeletionAt != nil && !now.Before(user.PendingDeletionAt.Add(s.grace)) {
			// Льготный период истёк: учётная запись ждёт необратимого
			// удаления и снаружи неотличима от несуществующей.
			metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrInvalidCredentials)
		}
	}

	ok, err := s.users.RegisterLoginSuccess(ctx, user.UID, s.grace)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Статус изменился между чтением и условным UPDATE.
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrInvalidCredentials)
	}

	pair, err := s.sessions.Create(ctx, user.UID, user.Role, device, ip)
	if err != nil {
		return nil, err
	}

	if user.Status != models.StatusActive {
		metrics.LifecycleTransitions.WithLabelValues(user.Status + "_to_active").Inc()
		s.auditor.Emit(models.AuditEvent{
			Actor:      user.UID,
			Action:     "account.reactivate",
			Resource:   user.UID,
			Before:     user.Status,
			After:      models.StatusActive,
			IP:         ip,
			SessionUID: pair.Session.UID,
		})
	}
	s.auditor.Emit(models.AuditEvent{
		Actor:      user.UID,
		Action:     "auth.login",
		Resource:   user.UID,
		IP:         ip,
		SessionUID: pair.Session.UID,
	})
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return pair, nil
}

// lockedOut сообщает, действует ли для пользователя блокировка по числу
// неудачных попыток входа. Блокировка снимается сама по истечении окна.
func (s *Service) lockedOut(user *models.User, now time.Time) bool {
	if user.FailedLoginAttempts < s.sessionCfg.LockoutThreshold {
		return false
	}
	if user.LastFailedLoginAt == nil {
		return false
	}
	return now.Before(user.LastFailedLoginAt.Add(s.sessionCfg.LockoutWindow))
}
