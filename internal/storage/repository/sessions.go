package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/models"
)

const sessionColumns = `uid, user_uid, refresh_token, device_id, device_type,
	device_name, ip, created_at, expires_at, revoked_at`

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	s := &models.Session{}
	var revokedAt sql.NullTime
	if err := row.Scan(&s.UID, &s.UserUID, &s.RefreshToken, &s.DeviceID,
		&s.DeviceType, &s.DeviceName, &s.IP, &s.CreatedAt, &s.ExpiresAt, &revokedAt); err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	return s, nil
}

// CreateSessionWithEviction вставляет новую сессию, предварительно вытеснив
// старые сессии пользователя сверх лимита. Строка пользователя блокируется
// на время транзакции (SELECT ... FOR UPDATE), поэтому конкурентные входы
// одного пользователя сериализуются и лимит не превышается. Вытесняются
// самые старые действующие сессии, новейшие maxSessions-1 остаются.
// Возвращает число вытесненных сессий.
func (s *Storage) CreateSessionWithEviction(ctx context.Context, session models.Session, maxSessions int) (int64, error) {
	const op = "storage.CreateSessionWithEviction"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lockedUID string
	if err = tx.QueryRowContext(ctx,
		`SELECT uid FROM users WHERE uid = $1 FOR UPDATE`,
		session.UserUID).Scan(&lockedUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, apperr.ErrUserNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = now()
		 WHERE uid IN (
		     SELECT uid FROM sessions
		     WHERE user_uid = $1 AND revoked_at IS NULL AND expires_at > now()
		     ORDER BY created_at DESC, uid DESC
		     OFFSET $2
		 )`,
		session.UserUID, maxSessions-1)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	evicted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (uid, user_uid, refresh_token, device_id, device_type,
		                       device_name, ip, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.UID, session.UserUID, session.RefreshToken, session.DeviceID,
		session.DeviceType, session.DeviceName, session.IP,
		session.CreatedAt, session.ExpiresAt); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return evicted, nil
}

// GetSession возвращает сессию по её UID.
func (s *Storage) GetSession(ctx context.Context, sessionUID string) (*models.Session, error) {
	const op = "storage.GetSession"

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE uid = $1`
	session, err := scanSession(s.DB.QueryRowContext(ctx, query, sessionUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// RotateRefreshToken заменяет значение refresh-токена сессии при условии,
// что предъявленное старое значение всё ещё актуально, а сессия действительна.
// Условный UPDATE делает ротацию атомарной: повтор уже использованного
// токена не находит строку и возвращает apperr.ErrSessionRevoked.
func (s *Storage) RotateRefreshToken(ctx context.Context, sessionUID, oldToken, newToken string) error {
	const op = "storage.RotateRefreshToken"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE sessions SET refresh_token = $1
		 WHERE uid = $2 AND refresh_token = $3
		   AND revoked_at IS NULL AND expires_at > now()`,
		newToken, sessionUID, oldToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.ErrSessionRevoked)
	}
	return nil
}

// RevokeSession отзывает сессию. Повторный отзыв не ошибка.
func (s *Storage) RevokeSession(ctx context.Context, sessionUID string) error {
	const op = "storage.RevokeSession"

	if _, err := s.DB.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = now()
		 WHERE uid = $1 AND revoked_at IS NULL`, sessionUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RevokeAllSessions отзывает все сессии пользователя, кроме указанной.
// Пустой exceptSessionUID отзывает все без исключений.
func (s *Storage) RevokeAllSessions(ctx context.Context, userUID, exceptSessionUID string) error {
	const op = "storage.RevokeAllSessions"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err = revokeAllSessionsTx(ctx, tx, userUID, exceptSessionUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func revokeAllSessionsTx(ctx context.Context, tx *sql.Tx, userUID, exceptSessionUID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = now()
		 WHERE user_uid = $1 AND revoked_at IS NULL AND uid::text <> $2`,
		userUID, exceptSessionUID)
	return err
}

// ListActiveSessions возвращает действующие сессии пользователя,
// новые первыми.
func (s *Storage) ListActiveSessions(ctx context.Context, userUID string) ([]*models.Session, error) {
	const op = "storage.ListActiveSessions"

	query := `SELECT ` + sessionColumns + ` FROM sessions
			  WHERE user_uid = $1 AND revoked_at IS NULL AND expires_at > now()
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
