// Package jwt реализует выпуск и проверку пары access/refresh токенов
// с пользовательскими claim полями.
//
// Оба токена подписываются HMAC-ключом процесса; refresh-токен привязан
// к конкретной сессии, поэтому отзыв сессии делает его недействительным
// без отдельного чёрного списка.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Виды токенов. Вид зашит в claims, чтобы access-токен нельзя было
// предъявить вместо refresh-токена и наоборот.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
type CustomClaims struct {
	UserUID              string `json:"user_uid"`    // Идентификатор пользователя
	SessionUID           string `json:"session_uid"` // Сессия, к которой привязан токен
	DeviceID             string `json:"device_id"`   // Устройство, запросившее токен
	Role                 string `json:"role"`        // Роль пользователя
	Kind                 string `json:"kind"`        // access или refresh
	jwt.RegisteredClaims        // Встроенные стандартные claims JWT (ExpiresAt, IssuedAt и пр.)
}

// Maker описывает интерфейс для выпуска и проверки токенов.
type Maker interface {
	// GenerateAccessToken выпускает короткоживущий access-токен.
	GenerateAccessToken(userUID, sessionUID, deviceID, role string) (string, error)
	// GenerateRefreshToken выпускает долгоживущий refresh-токен, привязанный к сессии.
	GenerateRefreshToken(userUID, sessionUID, deviceID, role string) (string, error)
	// ParseToken проверяет подпись, срок, издателя и вид токена.
	ParseToken(tokenStr, expectedKind string) (*CustomClaims, error)
}

// Config задаёт ключи подписи и сроки жизни токенов.
// PreviousSecretKey заполняется на время ротации ключа: проверка принимает
// подписи и текущим, и предыдущим ключом, выпуск — только текущим.
type Config struct {
	SecretKey         string        `yaml:"secret_key" env:"JWT_SECRET_KEY"`
	PreviousSecretKey string        `yaml:"previous_secret_key" env:"JWT_PREVIOUS_SECRET_KEY"`
	AccessTTL         time.Duration `yaml:"access_ttl" env-default:"30m"`
	RefreshTTL        time.Duration `yaml:"refresh_ttl" env-default:"168h"`
	Issuer            string        `yaml:"issuer" env-default:"phone-auth"`
	Audience          string        `yaml:"audience" env-default:"api"`
	Leeway            time.Duration `yaml:"leeway" env-default:"30s"`
}
