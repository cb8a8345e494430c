package models

import "time"

// AuditEvent описывает событие безопасности, отправляемое во внешний журнал аудита.
type AuditEvent struct {
	Actor      string    `json:"actor"`      // UID инициатора, пустой для анонимных действий
	Action     string    `json:"action"`     // Например account.suspend, auth.login
	Resource   string    `json:"resource"`   // UID затронутого объекта
	Before     string    `json:"before"`     // Состояние до перехода
	After      string    `json:"after"`      // Состояние после перехода
	IP         string    `json:"ip"`
	SessionUID string    `json:"session_uid"`
	OccurredAt time.Time `json:"occurred_at"`
}
