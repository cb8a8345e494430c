// Package lifecycle реализует переходы статуса учётной записи и смену
// учётных данных: пароля и телефона. Каждая операция подтверждается
// текущим паролем, меняет состояние и отзывает сессии в одной транзакции
// хранилища, после чего публикует событие аудита.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/phone-auth/internal/audit"
	"github.com/magabrotheeeer/phone-auth/internal/config"
	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/lib/password"
	"github.com/magabrotheeeer/phone-auth/internal/lib/phone"
	"github.com/magabrotheeeer/phone-auth/internal/metrics"
	"github.com/magabrotheeeer/phone-auth/internal/models"
)

// Repository описывает контракт хранилища для переходов учётной записи.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	UpdatePasswordWithRevocation(ctx context.Context, userUID, passwordHash, keepSessionUID string) error
	UpdatePhoneWithRevocation(ctx context.Context, userUID, newPhone, keepSessionUID string) error
	UpdateStatusWithRevocation(ctx context.Context, userUID, status string, statusTime *time.Time, keepSessionUID string) error
}

// OtpConsumer описывает потребление кода, подтверждающего владение новым телефоном.
type OtpConsumer interface {
	RequireConsumed(ctx context.Context, verificationUID, code, phoneNumber, purpose string) (*models.OtpRecord, error)
}

// Service реализует операции жизненного цикла учётной записи.
type Service struct {
	repo       Repository
	otps       OtpConsumer
	policy     *password.Policy
	hasher     *password.Hasher
	normalizer *phone.Normalizer
	auditor    audit.Emitter
	log        *slog.Logger
	cfg        config.Lifecycle
}

// New создает новый экземпляр Service.
func New(repo Repository, otps OtpConsumer, policy *password.Policy, hasher *password.Hasher,
	normalizer *phone.Normalizer, auditor audit.Emitter, log *slog.Logger, cfg config.Lifecycle) *Service {
	return &Service{
		repo:       repo,
		otps:       otps,
		policy:     policy,
		hasher:     hasher,
		normalizer: normalizer,
		auditor:    auditor,
		log:        log,
		cfg:        cfg,
	}
}

// verifyPassword загружает пользователя и сверяет текущий пароль.
// Несовпадение возвращается как apperr.ErrInvalidCredentials.
func (s *Service) verifyPassword(ctx context.Context, userUID, currentPassword string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if err := password.CompareHash(user.PasswordHash, currentPassword); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword меняет пароль пользователя. Новый пароль проходит политику,
// все сессии, кроме инициировавшей, отзываются.
func (s *Service) ChangePassword(ctx context.Context, userUID, sessionUID, currentPassword, newPassword, ip string) error {
	const op = "lifecycle.ChangePassword"

	user, err := s.verifyPassword(ctx, userUID, currentPassword)
	if err != nil {
		return err
	}
	if err := s.policy.Validate(newPassword); err != nil {
		return err
	}

	hashed, err := s.hasher.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdatePasswordWithRevocation(ctx, user.UID, hashed, sessionUID); err != nil {
		return err
	}

	s.auditor.Emit(models.AuditEvent{
		Actor:      user.UID,
		Action:     "account.password_change",
		Resource:   user.UID,
		IP:         ip,
		SessionUID: sessionUID,
	})
	s.log.Info("password changed", slog.String("op", op), slog.String("user_uid", user.UID))
	return nil
}

// ChangePhone меняет телефон пользователя. Владение новым номером
// подтверждается одноразовым кодом, выданным именно на него; все сессии,
// кроме инициировавшей, отзываются.
func (s *Service) ChangePhone(ctx context.Context, userUID, sessionUID, currentPassword, rawNewPhone, verificationUID, code, ip string) (string, error) {
	const op = "lifecycle.ChangePhone"

	user, err := s.verifyPassword(ctx, userUID, currentPassword)
	if err != nil {
		return "", err
	}
	canonical, err := s.normalizer.Normalize(rawNewPhone)
	if err != nil {
		return "", err
	}
	if _, err := s.otps.RequireConsumed(ctx, verificationUID, code, canonical, models.PurposePhoneChange); err != nil {
		return "", err
	}
	if err := s.repo.UpdatePhoneWithRevocation(ctx, user.UID, canonical, sessionUID); err != nil {
		return "", err
	}

	s.auditor.Emit(models.AuditEvent{
		Actor:      user.UID,
		Action:     "account.phone_change",
		Resource:   user.UID,
		Before:     user.Phone,
		After:      canonical,
		IP:         ip,
		SessionUID: sessionUID,
	})
	s.log.Info("phone changed", slog.String("op", op), slog.String("user_uid", user.UID))
	return canonical, nil
}

// Deactivate переводит учётную запись в статус deactivated и отзывает
// все сессии. Обратный переход выполняется успешным входом.
func (s *Service) Deactivate(ctx context.Context, userUID, sessionUID, currentPassword, ip string) error {
	const op = "lifecycle.Deactivate"

	user, err := s.verifyPassword(ctx, userUID, currentPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatusWithRevocation(ctx, user.UID, models.StatusDeactivated, nil, ""); err != nil {
		return err
	}

	metrics.LifecycleTransitions.WithLabelValues(user.Status + "_to_" + models.StatusDeactivated).Inc()
	s.auditor.Emit(models.AuditEvent{
		Actor:      user.UID,
		Action:     "account.deactivate",
		Resource:   user.UID,
		Before:     user.Status,
		After:      models.StatusDeactivated,
		IP:         ip,
		SessionUID: sessionUID,
	})
	s.log.Info("account deactivated", slog.String("op", op), slog.String("user_uid", user.UID))
	return nil
}

// RequestDeletion ставит учётную запись в очередь на необратимое удаление
// и отзывает все сессии. Возвращает момент, после которого фоновая очистка
// удалит данные; до этого момента вход отменяет запрос.
func (s *Service) RequestDeletion(ctx context.Context, userUID, sessionUID, currentPassword, ip string) (time.Time, error) {
	const op = "lifecycle.RequestDeletion"

	user, err := s.verifyPassword(ctx, userUID, currentPassword)
	if err != nil {
		return time.Time{}, err
	}

	requestedAt := time.Now().UTC()
	if err := s.repo.UpdateStatusWithRevocation(ctx, user.UID, models.StatusPendingDeletion, &requestedAt, ""); err != nil {
		return time.Time{}, err
	}

	metrics.LifecycleTransitions.WithLabelValues(user.Status + "_to_" + models.StatusPendingDeletion).Inc()
	s.auditor.Emit(models.AuditEvent{
		Actor:      user.UID,
		Action:     "account.deletion_request",
		Resource:   user.UID,
		Before:     user.Status,
		After:      models.StatusPendingDeletion,
		IP:         ip,
		SessionUID: sessionUID,
	})
	s.log.Info("deletion requested", slog.String("op", op), slog.String("user_uid", user.UID))
	return requestedAt.Add(s.cfg.DeletionGracePeriod), nil
}

// Suspend блокирует учётную запись до указанного момента и отзывает все
// сессии. Доступно только администратору; момент должен быть в будущем.
func (s *Service) Suspend(ctx context.Context, actorUID, targetUID string, until time.Time, ip string) error {
	const op = "lifecycle.Suspend"

	if !until.After(time.Now().UTC()) {
		return fmt.Errorf("%s: suspension end must be in the future: %w", op, apperr.ErrForbidden)
	}
	user, err := s.repo.GetUser(ctx, targetUID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatusWithRevocation(ctx, targetUID, models.StatusSuspended, &until, ""); err != nil {
		return err
	}

	metrics.LifecycleTransitions.WithLabelValues(user.Status + "_to_" + models.StatusSuspended).Inc()
	s.auditor.Emit(models.AuditEvent{
		Actor:    actorUID,
		Action:   "account.suspend",
		Resource: targetUID,
		Before:   user.Status,
		After:    models.StatusSuspended,
		IP:       ip,
	})
	s.log.Info("account suspended",
		slog.String("op", op),
		slog.String("user_uid", targetUID),
		slog.Time("until", until))
	return nil
}

// Unsuspend досрочно снимает блокировку, возвращая учётную запись в active.
func (s *Service) Unsuspend(ctx context.Context, actorUID, targetUID, ip string) error {
	const op = "lifecycle.Unsuspend"

	user, err := s.repo.GetUser(ctx, targetUID)
	if err != nil {
		return err
	}
	if user.Status != models.StatusSuspended {
		return fmt.Errorf("%s: account is not suspended: %w", op, apperr.ErrForbidden)
	}
	if err := s.repo.UpdateStatusWithRevocation(ctx, targetUID, models.StatusActive, nil, ""); err != nil {
		return err
	}

	metrics.LifecycleTransitions.WithLabelValues(models.StatusSuspended + "_to_" + models.StatusActive).Inc()
	s.auditor.Emit(models.AuditEvent{
		Actor:    actorUID,
		Action:   "account.unsuspend",
		Resource: targetUID,
		Before:   models.StatusSuspended,
		After:    models.StatusActive,
		IP:       ip,
	})
	s.log.Info("account unsuspended", slog.String("op", op), slog.String("user_uid", targetUID))
	return nil
}
