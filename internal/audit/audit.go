// Package audit отправляет события безопасности во внешний журнал аудита.
// Отправка выполняется по принципу fire-and-forget: отказ журнала логируется,
// но никогда не прерывает основную операцию.
package audit

import (
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	librabbit "github.com/magabrotheeeer/phone-auth/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
	"github.com/magabrotheeeer/phone-auth/internal/models"
	"github.com/magabrotheeeer/phone-auth/internal/rabbitmq"
)

// Emitter описывает приёмник событий аудита.
type Emitter interface {
	Emit(event models.AuditEvent)
}

// RabbitEmitter публикует события аудита в очередь audit_events.
type RabbitEmitter struct {
	channel *amqp.Channel
	log     *slog.Logger
}

// NewRabbitEmitter создаёт RabbitEmitter.
func NewRabbitEmitter(channel *amqp.Channel, log *slog.Logger) *RabbitEmitter {
	return &RabbitEmitter{channel: channel, log: log}
}

// Emit публикует событие. Ошибка публикации только логируется.
func (e *RabbitEmitter) Emit(event models.AuditEvent) {
	const op = "audit.Emit"
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := librabbit.PublishMessage(e.channel, rabbitmq.Exchange, rabbitmq.RoutingKeyAudit, event); err != nil {
		e.log.Error("failed to publish audit event",
			slog.String("op", op),
			slog.String("action", event.Action),
			sl.Err(err))
	}
}

// NopEmitter отбрасывает события, используется в тестах и при отключённом аудите.
type NopEmitter struct{}

// Emit ничего не делает.
func (NopEmitter) Emit(models.AuditEvent) {}
