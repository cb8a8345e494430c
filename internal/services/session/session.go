// Package session содержит логику управления сессиями: создание с
// вытеснением по лимиту, проверку, ротацию refresh-токена и отзыв.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/phone-auth/internal/config"
	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/lib/jwt"
	"github.com/magabrotheeeer/phone-auth/internal/metrics"
	"github.com/magabrotheeeer/phone-auth/internal/models"
)

// SessionRepository описывает контракт для работы с сессиями в базе данных.
type SessionRepository interface {
	CreateSessionWithEviction(ctx context.Context, session models.Session, maxSessions int) (int64, error)
	GetSession(ctx context.Context, sessionUID string) (*models.Session, error)
	RotateRefreshToken(ctx context.Context, sessionUID, oldToken, newToken string) error
	RevokeSession(ctx context.Context, sessionUID string) error
	RevokeAllSessions(ctx context.Context, userUID, exceptSessionUID string) error
	ListActiveSessions(ctx context.Context, userUID string) ([]*models.Session, error)
}

// Service реализует менеджер сессий.
type Service struct {
	repo     SessionRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
	cfg      config.Sessions
}

// New создает новый экземпляр Service.
func New(repo SessionRepository, jwtMaker jwt.Maker, log *slog.Logger, cfg config.Sessions) *Service {
	return &Service{
		repo:     repo,
		jwtMaker: jwtMaker,
		log:      log,
		cfg:      cfg,
	}
}

// TokenPair выданная пара токенов вместе с сессией.
type TokenPair struct {
	Session      *models.Session
	AccessToken  string
	RefreshToken string
}

// Create создаёт сессию для пользователя, предварительно вытеснив самые
// старые действующие сессии сверх лимита. Сессия и refresh-токен сначала
// сохраняются в базе и только потом возвращаются вызывающей стороне:
// токен не выдаётся для сессии, которую не удалось зафиксировать.
func (s *Service) Create(ctx context.Context, userUID, role string, device models.Device, ip string) (*TokenPair, error) {
	const op = "session.Create"

	now := time.Now().UTC()
	session := models.Session{
		UID:        uuid.NewString(),
		UserUID:    userUID,
		DeviceID:   device.ID,
		DeviceType: device.Type,
		DeviceName: device.Name,
		IP:         ip,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.TTL),
	}

	refreshToken, err := s.jwtMaker.GenerateRefreshToken(userUID, session.UID, device.ID, role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	session.RefreshToken = refreshToken

	evicted, err := s.repo.CreateSessionWithEviction(ctx, session, s.cfg.MaxPerUser)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if evicted > 0 {
		metrics.SessionsEvicted.Add(float64(evicted))
		s.log.Info("evicted sessions over the per-user cap",
			slog.String("op", op),
			slog.String("user_uid", userUID),
			slog.Int64("count", evicted))
	}

	accessToken, err := s.jwtMaker.GenerateAccessToken(userUID, session.UID, device.ID, role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &TokenPair{
		Session:      &session,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Validate возвращает сессию, если она существует, не истекла и не отозвана.
// Все три отказа вызывающая сторона должна трактовать как требование
// аутентифицироваться заново.
func (s *Service) Validate(ctx context.Context, sessionUID string) (*models.Session, error) {
	const op = "session.Validate"

	session, err := s.repo.GetSession(ctx, sessionUID)
	if err != nil {
		return nil, err
	}
	if session.RevokedAt != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrSessionRevoked)
	}
	if !time.Now().UTC().Before(session.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrSessionExpired)
	}
	return session, nil
}

// Refresh проверяет refresh-токен, сверяет его с актуальным значением сессии
// и ротирует: старое значение безвозвратно теряет силу. Операция намеренно
// не идемпотентна — повтор старого токена после успешной ротации считается
// признаком кражи и отклоняется.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	const op = "session.Refresh"

	claims, err := s.jwtMaker.ParseToken(refreshToken, jwt.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrInvalidToken)
	}

	session, err := s.Validate(ctx, claims.SessionUID)
	if err != nil {
		return nil, err
	}
	if session.RefreshToken != refreshToken {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrSessionRevoked)
	}

	newRefresh, err := s.jwtMaker.GenerateRefreshToken(claims.UserUID, session.UID, claims.DeviceID, claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.RotateRefreshToken(ctx, session.UID, refreshToken, newRefresh); err != nil {
		return nil, err
	}
	session.RefreshToken = newRefresh

	accessToken, err := s.jwtMaker.GenerateAccessToken(claims.UserUID, session.UID, claims.DeviceID, claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &TokenPair{
		Session:      session,
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
	}, nil
}

// Revoke отзывает сессию. Повторный отзыв — не ошибка.
func (s *Service) Revoke(ctx context.Context, sessionUID string) error {
	return s.repo.RevokeSession(ctx, sessionUID)
}

// RevokeOwned отзывает сессию, предварительно убедившись, что она
// принадлежит указанному пользователю. Чужая сессия неотличима
// от несуществующей.
func (s *Service) RevokeOwned(ctx context.Context, userUID, sessionUID string) error {
	const op = "session.RevokeOwned"

	session, err := s.repo.GetSession(ctx, sessionUID)
	if err != nil {
		return err
	}
	if session.UserUID != userUID {
		return fmt.Errorf("%s: %w", op, apperr.ErrSessionNotFound)
	}
	return s.repo.RevokeSession(ctx, sessionUID)
}

// RevokeAll отзывает все сессии пользователя, кроме указанной.
func (s *Service) RevokeAll(ctx context.Context, userUID, exceptSessionUID string) error {
	return s.repo.RevokeAllSessions(ctx, userUID, exceptSessionUID)
}

// ListActive возвращает действующие сессии пользователя.
func (s *Service) ListActive(ctx context.Context, userUID string) ([]*models.Session, error) {
	return s.repo.ListActiveSessions(ctx, userUID)
}
