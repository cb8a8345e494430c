package models

import "time"

// Session представляет устройство, которому выдана пара токенов.
// Сессия действительна, пока не истекла и не отозвана; отзыв необратим.
type Session struct {
	UID          string     // Уникальный идентификатор сессии
	UserUID      string     // Владелец сессии
	RefreshToken string     // Текущее значение refresh-токена, ротируется при каждом обновлении
	DeviceID     string     // Непрозрачный идентификатор устройства клиента
	DeviceType   string     // Тип устройства: ios, android, web
	DeviceName   string     // Человекочитаемое имя устройства
	IP           string     // IP-адрес, с которого создана сессия
	CreatedAt    time.Time
	ExpiresAt    time.Time  // Фиксированный горизонт жизни сессии
	RevokedAt    *time.Time // Время отзыва, nil пока сессия не отозвана
}

// IsValid сообщает, можно ли использовать сессию в данный момент.
func (s *Session) IsValid(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Device описывает устройство, с которого выполняется вход.
type Device struct {
	ID   string `json:"id" validate:"required,max=128"`
	Type string `json:"type" validate:"required,oneof=ios android web"`
	Name string `json:"name" validate:"max=128"`
}
