package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/models"
)

const userColumns = `uid, phone, password_hash, role, status, suspension_until,
	pending_deletion_at, failed_login_attempts, last_failed_login_at,
	password_changed_at, phone_verified, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var suspensionUntil, pendingDeletionAt, lastFailedLoginAt, passwordChangedAt sql.NullTime
	if err := row.Scan(&u.UID, &u.Phone, &u.PasswordHash, &u.Role, &u.Status,
		&suspensionUntil, &pendingDeletionAt, &u.FailedLoginAttempts,
		&lastFailedLoginAt, &passwordChangedAt, &u.PhoneVerified, &u.CreatedAt); err != nil {
		return nil, err
	}
	if suspensionUntil.Valid {
		u.SuspensionUntil = &suspensionUntil.Time
	}
	if pendingDeletionAt.Valid {
		u.PendingDeletionAt = &pendingDeletionAt.Time
	}
	if lastFailedLoginAt.Valid {
		u.LastFailedLoginAt = &lastFailedLoginAt.Time
	}
	if passwordChangedAt.Valid {
		u.PasswordChangedAt = &passwordChangedAt.Time
	}
	return u, nil
}

// RegisterUser сохраняет нового пользователя и возвращает его UID.
// Занятый телефон возвращается как apperr.ErrPhoneTaken.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (phone, password_hash, role, status, phone_verified)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Phone, user.PasswordHash, user.Role, user.Status, user.PhoneVerified).Scan(&newUID); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, apperr.ErrPhoneTaken)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByPhone возвращает пользователя по каноническому телефону.
func (s *Storage) GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	const op = "storage.GetUserByPhone"

	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, phoneNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// RegisterLoginFailure увеличивает счётчик неудачных попыток входа
// и возвращает новое значение.
func (s *Storage) RegisterLoginFailure(ctx context.Context, userUID string) (int, error) {
	const op = "storage.RegisterLoginFailure"

	query := `UPDATE users
			  SET failed_login_attempts = failed_login_attempts + 1,
			      last_failed_login_at = now()
			  WHERE uid = $1
			  RETURNING failed_login_attempts`
	var attempts int
	if err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return attempts, nil
}

// RegisterLoginSuccess сбрасывает счётчик неудачных попыток и возвращает
// учётную запись в статус active, если она была деактивирована, ожидала
// удаления внутри льготного периода либо вышла из истёкшей блокировки.
// Один условный UPDATE, поэтому переход атомарен относительно конкурентных
// входов и фонового удаления. Возвращает false, если ни одно из условий
// не выполнилось и вход разрешать нельзя.
func (s *Storage) RegisterLoginSuccess(ctx context.Context, userUID string, grace time.Duration) (bool, error) {
	const op = "storage.RegisterLoginSuccess"

	query := `UPDATE users
			  SET failed_login_attempts = 0,
			      last_failed_login_at = NULL,
			      status = 'active',
			      suspension_until = NULL,
			      pending_deletion_at = NULL
			  WHERE uid = $1
			    AND (status IN ('active', 'deactivated')
			      OR (status = 'pending_deletion' AND pending_deletion_at + $2 > now())
			      OR (status = 'suspended' AND suspension_until <= now()))`
	res, err := s.DB.ExecContext(ctx, query, userUID, grace)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// UpdatePasswordWithRevocation в одной транзакции меняет хэш пароля
// и отзывает все сессии пользователя, кроме указанной.
func (s *Storage) UpdatePasswordWithRevocation(ctx context.Context, userUID, passwordHash, keepSessionUID string) error {
	const op = "storage.UpdatePasswordWithRevocation"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, password_changed_at = now() WHERE uid = $2`,
		passwordHash, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = revokeAllSessionsTx(ctx, tx, userUID, keepSessionUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePhoneWithRevocation в одной транзакции перепроверяет уникальность
// нового телефона, обновляет его, помечает подтверждённым и отзывает все
// сессии, кроме указанной. Повторная проверка закрывает гонку между
// выдачей кода и фиксацией транзакции.
func (s *Storage) UpdatePhoneWithRevocation(ctx context.Context, userUID, newPhone, keepSessionUID string) error {
	const op = "storage.UpdatePhoneWithRevocation"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var taken bool
	if err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE phone = $1 AND uid <> $2)`,
		newPhone, userUID).Scan(&taken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return fmt.Errorf("%s: %w", op, apperr.ErrPhoneTaken)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET phone = $1, phone_verified = TRUE WHERE uid = $2`,
		newPhone, userUID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, apperr.ErrPhoneTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = revokeAllSessionsTx(ctx, tx, userUID, keepSessionUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateStatusWithRevocation в одной транзакции переводит учётную запись
// в новый статус, выставляет соответствующую статусу временную метку
// и отзывает все сессии пользователя, кроме указанной (пустая строка —
// отозвать все). Ровно одно из статусных временных полей остаётся заполненным.
func (s *Storage) UpdateStatusWithRevocation(ctx context.Context, userUID, status string, statusTime *time.Time, keepSessionUID string) error {
	const op = "storage.UpdateStatusWithRevocation"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var suspensionUntil, pendingDeletionAt *time.Time
	switch status {
	case models.StatusSuspended:
		suspensionUntil = statusTime
	case models.StatusPendingDeletion:
		pendingDeletionAt = statusTime
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE users
		 SET status = $1, suspension_until = $2, pending_deletion_at = $3
		 WHERE uid = $4`,
		status, suspensionUntil, pendingDeletionAt, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.ErrUserNotFound)
	}
	if err = revokeAllSessionsTx(ctx, tx, userUID, keepSessionUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindDeletionsDue возвращает UID пользователей, чей льготный период
// после запроса на удаление истёк.
func (s *Storage) FindDeletionsDue(ctx context.Context, grace time.Duration) ([]string, error) {
	const op = "storage.FindDeletionsDue"

	query := `SELECT uid FROM users
			  WHERE status = 'pending_deletion'
			    AND pending_deletion_at + $1 <= now()`
	rows, err := s.DB.QueryContext(ctx, query, grace)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var uids []string
	for rows.Next() {
		var uid string
		if err = rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		uids = append(uids, uid)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return uids, nil
}

// DeleteUser необратимо удаляет пользователя; сессии и коды удаляются
// каскадно по внешнему ключу.
func (s *Storage) DeleteUser(ctx context.Context, userUID string) error {
	const op = "storage.DeleteUser"

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE uid = $1`, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LiftExpiredSuspensions возвращает в статус active пользователей,
// у которых срок блокировки истёк. Возвращает число поднятых блокировок.
func (s *Storage) LiftExpiredSuspensions(ctx context.Context) (int64, error) {
	const op = "storage.LiftExpiredSuspensions"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users
		 SET status = 'active', suspension_until = NULL
		 WHERE status = 'suspended' AND suspension_until <= now()`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
