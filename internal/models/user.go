// Package models содержит доменные модели сервиса аутентификации:
// пользователя, сессию, одноразовый код и событие аудита.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Статусы учётной записи пользователя.
const (
	StatusActive          = "active"
	StatusSuspended       = "suspended"
	StatusDeactivated     = "deactivated"
	StatusPendingDeletion = "pending_deletion"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID                 string     // Уникальный идентификатор пользователя
	Phone               string     // Телефон в каноническом международном формате (уникальный)
	PasswordHash        string     // Хэш пароля пользователя
	Role                string     // Роль пользователя, admin или user
	Status              string     // Статус учётной записи, см. константы Status*
	SuspensionUntil     *time.Time // Срок окончания блокировки, только при status = suspended
	PendingDeletionAt   *time.Time // Момент запроса на удаление, только при status = pending_deletion
	FailedLoginAttempts int        // Счётчик неудачных попыток входа подряд
	LastFailedLoginAt   *time.Time // Время последней неудачной попытки входа
	PasswordChangedAt   *time.Time // Время последней смены пароля
	PhoneVerified       bool       // Подтверждён ли телефон одноразовым кодом
	CreatedAt           time.Time
}
