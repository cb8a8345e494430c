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

const otpColumns = `uid, user_uid, phone, code, purpose, attempts, max_attempts,
	expires_at, verified_at, created_at`

func scanOtp(row interface{ Scan(...any) error }) (*models.OtpRecord, error) {
	o := &models.OtpRecord{}
	var userUID sql.NullString
	var verifiedAt sql.NullTime
	if err := row.Scan(&o.UID, &userUID, &o.Phone, &o.Code, &o.Purpose,
		&o.Attempts, &o.MaxAttempts, &o.ExpiresAt, &verifiedAt, &o.CreatedAt); err != nil {
		return nil, err
	}
	if userUID.Valid {
		o.UserUID = &userUID.String
	}
	if verifiedAt.Valid {
		o.VerifiedAt = &verifiedAt.Time
	}
	return o, nil
}

// SaveOtp сохраняет выданный код и возвращает UID записи верификации.
func (s *Storage) SaveOtp(ctx context.Context, record models.OtpRecord) (string, error) {
	const op = "storage.SaveOtp"

	var newUID string
	query := `INSERT INTO otps (user_uid, phone, code, purpose, max_attempts, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		record.UserUID, record.Phone, record.Code, record.Purpose,
		record.MaxAttempts, record.ExpiresAt).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetOtp возвращает запись верификации по UID.
func (s *Storage) GetOtp(ctx context.Context, otpUID string) (*models.OtpRecord, error) {
	const op = "storage.GetOtp"

	query := `SELECT ` + otpColumns + ` FROM otps WHERE uid = $1`
	record, err := scanOtp(s.DB.QueryRowContext(ctx, query, otpUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrOtpRejected)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return record, nil
}

// RegisterOtpAttempt увеличивает счётчик попыток при условии, что код ещё
// потребляем, и возвращает число оставшихся попыток. Если запись уже
// непотребляема, строка не находится и возвращается apperr.ErrOtpRejected.
func (s *Storage) RegisterOtpAttempt(ctx context.Context, otpUID string) (int, error) {
	const op = "storage.RegisterOtpAttempt"

	query := `UPDATE otps SET attempts = attempts + 1
			  WHERE uid = $1 AND verified_at IS NULL
			    AND expires_at > now() AND attempts < max_attempts
			  RETURNING max_attempts - attempts`
	var remaining int
	if err := s.DB.QueryRowContext(ctx, query, otpUID).Scan(&remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, apperr.ErrOtpRejected)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return remaining, nil
}

// ConsumeOtp атомарно помечает код подтверждённым. Условный UPDATE
// гарантирует, что из двух конкурентных подтверждений с верным кодом
// выигрывает ровно одно; проигравшее получает apperr.ErrOtpRejected.
func (s *Storage) ConsumeOtp(ctx context.Context, otpUID string) error {
	const op = "storage.ConsumeOtp"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE otps SET verified_at = now()
		 WHERE uid = $1 AND verified_at IS NULL
		   AND expires_at > now() AND attempts < max_attempts`,
		otpUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.ErrOtpRejected)
	}
	return nil
}

// PurgeOtps удаляет истёкшие неподтверждённые коды и подтверждённые коды
// старше окна хранения. Возвращает число удалённых записей.
func (s *Storage) PurgeOtps(ctx context.Context, verifiedRetention time.Duration) (int64, error) {
	const op = "storage.PurgeOtps"

	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM otps
		 WHERE (verified_at IS NULL AND expires_at <= now())
		    OR (verified_at IS NOT NULL AND verified_at + $1 <= now())`,
		verifiedRetention)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
