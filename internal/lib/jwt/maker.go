package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токенов (TTL).
type MakerImpl struct {
	cfg Config
}

// NewMaker создаёт новый экземпляр MakerImpl на основе конфигурации.
func NewMaker(cfg Config) *MakerImpl {
	return &MakerImpl{cfg: cfg}
}

// GenerateAccessToken выпускает access-токен со сроком жизни AccessTTL.
func (j *MakerImpl) GenerateAccessToken(userUID, sessionUID, deviceID, role string) (string, error) {
	return j.generate(userUID, sessionUID, deviceID, role, KindAccess, j.cfg.AccessTTL)
}

// GenerateRefreshToken выпускает refresh-токен со сроком жизни RefreshTTL.
func (j *MakerImpl) GenerateRefreshToken(userUID, sessionUID, deviceID, role string) (string, error) {
	return j.generate(userUID, sessionUID, deviceID, role, KindRefresh, j.cfg.RefreshTTL)
}

func (j *MakerImpl) generate(userUID, sessionUID, deviceID, role, kind string, ttl time.Duration) (string, error) {
	const op = "jwt.generate"
	now := time.Now()
	claims := CustomClaims{
		UserUID:    userUID,
		SessionUID: sessionUID,
		DeviceID:   deviceID,
		Role:       role,
		Kind:       kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			Audience:  jwt.ClaimStrings{j.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken парсит JWT, проверяет подпись, срок действия, издателя,
// аудиторию и вид токена. Во время ротации ключа подпись проверяется
// сначала текущим, затем предыдущим ключом.
func (j *MakerImpl) ParseToken(tokenStr, expectedKind string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"

	claims, err := j.parseWithKey(tokenStr, j.cfg.SecretKey)
	if err != nil && j.cfg.PreviousSecretKey != "" {
		claims, err = j.parseWithKey(tokenStr, j.cfg.PreviousSecretKey)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if claims.Kind != expectedKind {
		return nil, fmt.Errorf("%s: unexpected token kind %q", op, claims.Kind)
	}
	return claims, nil
}

func (j *MakerImpl) parseWithKey(tokenStr, key string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{},
		func(_ *jwt.Token) (any, error) {
			return []byte(key), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.cfg.Issuer),
		jwt.WithAudience(j.cfg.Audience),
		jwt.WithLeeway(j.cfg.Leeway),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
