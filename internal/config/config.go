// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/magabrotheeeer/phone-auth/internal/lib/jwt"
	"github.com/magabrotheeeer/phone-auth/internal/lib/password"
	"github.com/magabrotheeeer/phone-auth/internal/lib/phone"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RabbitConnectionString  string `yaml:"rabbit_connection_string" env:"RABBIT_CONNECTION_STRING"`

	RedisConnection `yaml:"redis_connection"`
	HTTPServer      `yaml:"http_server"`

	JWTToken       jwt.Config            `yaml:"jwttoken"`
	PasswordPolicy password.PolicyConfig `yaml:"password_policy"`
	BcryptCost     int                   `yaml:"bcrypt_cost" env-default:"10"`
	Phone          phone.Config          `yaml:"phone"`
	OTP            OTP                   `yaml:"otp"`
	RateLimits     RateLimits            `yaml:"rate_limits"`
	Sessions       Sessions              `yaml:"sessions"`
	Lifecycle      Lifecycle             `yaml:"lifecycle"`
	Reaper         Reaper                `yaml:"reaper"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"2s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"500ms"`
}

// OTP настройки выпуска и проверки одноразовых кодов
type OTP struct {
	CodeLength        int           `yaml:"code_length" env-default:"6"`
	TTL               time.Duration `yaml:"ttl" env-default:"5m"`
	MaxAttempts       int           `yaml:"max_attempts" env-default:"5"`
	DeliveryRetries   int           `yaml:"delivery_retries" env-default:"3"`
	DeliveryBackoff   time.Duration `yaml:"delivery_backoff" env-default:"500ms"`
	VerifiedRetention time.Duration `yaml:"verified_retention" env-default:"720h"`
}

// RateLimits пороги ограничения частоты запросов
type RateLimits struct {
	// FailOpen определяет поведение при недоступности redis:
	// true — пропускать запросы, false — отклонять.
	FailOpen          bool          `yaml:"fail_open" env-default:"true"`
	OtpPerPhone       int           `yaml:"otp_per_phone" env-default:"5"`
	OtpPerPhoneWindow time.Duration `yaml:"otp_per_phone_window" env-default:"1h"`
	OtpPerIP          int           `yaml:"otp_per_ip" env-default:"10"`
	OtpPerIPWindow    time.Duration `yaml:"otp_per_ip_window" env-default:"1h"`
	LoginPerPhone     int           `yaml:"login_per_phone" env-default:"10"`
	LoginWindow       time.Duration `yaml:"login_window" env-default:"15m"`
}

// Sessions настройки сессий и блокировки входа
type Sessions struct {
	MaxPerUser       int           `yaml:"max_per_user" env-default:"5"`
	TTL              time.Duration `yaml:"ttl" env-default:"168h"`
	LockoutThreshold int           `yaml:"lockout_threshold" env-default:"5"`
	LockoutWindow    time.Duration `yaml:"lockout_window" env-default:"15m"`
}

// Lifecycle настройки переходов статуса учётной записи
type Lifecycle struct {
	DeletionGracePeriod time.Duration `yaml:"deletion_grace_period" env-default:"360h"`
}

// Reaper настройки фоновой очистки
type Reaper struct {
	Interval time.Duration `yaml:"interval" env-default:"10m"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
