package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/migrations"
	"github.com/magabrotheeeer/phone-auth/internal/models"
)

func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db, migrationsPath))

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return New(db), cleanup
}

func createTestUser(t *testing.T, storage *Storage, phone string) string {
	uid, err := storage.RegisterUser(context.Background(), models.User{
		Phone:         phone,
		PasswordHash:  "hashed",
		Role:          "user",
		Status:        models.StatusActive,
		PhoneVerified: true,
	})
	require.NoError(t, err)
	return uid
}

func newTestSession(userUID string) models.Session {
	return models.Session{
		UID:          uuid.NewString(),
		UserUID:      userUID,
		RefreshToken: uuid.NewString(),
		DeviceID:     "device-" + uuid.NewString()[:8],
		DeviceType:   "ios",
		IP:           "10.0.0.1",
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(7 * 24 * time.Hour),
	}
}

func TestStorage_RegisterUser_DuplicatePhone(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	createTestUser(t, storage, "+79991234567")
	_, err := storage.RegisterUser(context.Background(), models.User{
		Phone: "+79991234567", PasswordHash: "x", Role: "user", Status: models.StatusActive,
	})
	require.ErrorIs(t, err, apperr.ErrPhoneTaken)
}

func TestStorage_SessionEviction(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	userUID := createTestUser(t, storage, "+79991234567")
	const maxSessions = 3

	var firstUID string
	for i := range maxSessions {
		s := newTestSession(userUID)
		s.CreatedAt = time.Now().UTC().Add(time.Duration(i-10) * time.Minute)
		if i == 0 {
			firstUID = s.UID
		}
		evicted, err := storage.CreateSessionWithEviction(ctx, s, maxSessions)
		require.NoError(t, err)
		assert.Zero(t, evicted)
	}

	// Четвёртая сессия вытесняет ровно одну, самую старую.
	evicted, err := storage.CreateSessionWithEviction(ctx, newTestSession(userUID), maxSessions)
	require.NoError(t, err)
	assert.Equal(t, int64(1), evicted)

	active, err := storage.ListActiveSessions(ctx, userUID)
	require.NoError(t, err)
	assert.Len(t, active, maxSessions)
	for _, s := range active {
		assert.NotEqual(t, firstUID, s.UID)
	}

	oldest, err := storage.GetSession(ctx, firstUID)
	require.NoError(t, err)
	assert.NotNil(t, oldest.RevokedAt)
}

func TestStorage_RotateRefreshToken_ReplayFails(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	userUID := createTestUser(t, storage, "+79991234567")
	session := newTestSession(userUID)
	_, err := storage.CreateSessionWithEviction(ctx, session, 5)
	require.NoError(t, err)

	oldToken := session.RefreshToken
	require.NoError(t, storage.RotateRefreshToken(ctx, session.UID, oldToken, "new-token"))

	// Повтор со старым значением не находит строку.
	err = storage.RotateRefreshToken(ctx, session.UID, oldToken, "another-token")
	require.ErrorIs(t, err, apperr.ErrSessionRevoked)

	require.NoError(t, storage.RotateRefreshToken(ctx, session.UID, "new-token", "third-token"))
}

func TestStorage_ConsumeOtp_ExactlyOnce(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	uid, err := storage.SaveOtp(ctx, models.OtpRecord{
		Phone:       "+79991234567",
		Code:        "123456",
		Purpose:     models.PurposeRegistration,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().UTC().Add(5 * time.Minute),
	})
	require.NoError(t, err)

	require.NoError(t, storage.ConsumeOtp(ctx, uid))
	require.ErrorIs(t, storage.ConsumeOtp(ctx, uid), apperr.ErrOtpRejected)
}

func TestStorage_OtpAttemptsExhaustion(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	uid, err := storage.SaveOtp(ctx, models.OtpRecord{
		Phone:       "+79991234567",
		Code:        "123456",
		Purpose:     models.PurposeLogin,
		MaxAttempts: 2,
		ExpiresAt:   time.Now().UTC().Add(5 * time.Minute),
	})
	require.NoError(t, err)

	remaining, err := storage.RegisterOtpAttempt(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	remaining, err = storage.RegisterOtpAttempt(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	// Попытки исчерпаны: ни новые попытки, ни верный код больше не проходят.
	_, err = storage.RegisterOtpAttempt(ctx, uid)
	require.ErrorIs(t, err, apperr.ErrOtpRejected)
	require.ErrorIs(t, storage.ConsumeOtp(ctx, uid), apperr.ErrOtpRejected)
}

func TestStorage_UpdateStatusWithRevocation_KeepsOneSession(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	userUID := createTestUser(t, storage, "+79991234567")
	kept := newTestSession(userUID)
	other := newTestSession(userUID)
	_, err := storage.CreateSessionWithEviction(ctx, kept, 5)
	require.NoError(t, err)
	_, err = storage.CreateSessionWithEviction(ctx, other, 5)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, storage.UpdateStatusWithRevocation(
		ctx, userUID, models.StatusPendingDeletion, &now, kept.UID))

	user, err := storage.GetUser(ctx, userUID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingDeletion, user.Status)
	require.NotNil(t, user.PendingDeletionAt)
	assert.Nil(t, user.SuspensionUntil)

	active, err := storage.ListActiveSessions(ctx, userUID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, kept.UID, active[0].UID)
}

func TestStorage_DeleteUser_Cascades(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	userUID := createTestUser(t, storage, "+79991234567")
	session := newTestSession(userUID)
	_, err := storage.CreateSessionWithEviction(ctx, session, 5)
	require.NoError(t, err)

	require.NoError(t, storage.DeleteUser(ctx, userUID))

	_, err = storage.GetUser(ctx, userUID)
	require.ErrorIs(t, err, apperr.ErrUserNotFound)
	_, err = storage.GetSession(ctx, session.UID)
	require.ErrorIs(t, err, apperr.ErrSessionNotFound)
}
