// Package sms реализует внешний канал доставки одноразовых кодов.
// Сообщение с кодом публикуется в очередь sms_send, откуда его забирает
// отдельный сервис-отправитель. Публикация повторяется ограниченное число
// раз с выдержкой, после чего вызывающей стороне возвращается ошибка доставки.
package sms

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	librabbit "github.com/magabrotheeeer/phone-auth/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
	"github.com/magabrotheeeer/phone-auth/internal/rabbitmq"
)

// Message описывает задание на отправку кода.
type Message struct {
	Phone      string `json:"phone"`
	TemplateID string `json:"template_id"`
	Code       string `json:"code"`
}

// Sender публикует задания на доставку кодов.
type Sender struct {
	channel *amqp.Channel
	log     *slog.Logger
	retries int
	backoff time.Duration
}

// NewSender создаёт Sender с ограниченным числом повторов публикации.
func NewSender(channel *amqp.Channel, log *slog.Logger, retries int, backoff time.Duration) *Sender {
	if retries < 1 {
		retries = 1
	}
	return &Sender{channel: channel, log: log, retries: retries, backoff: backoff}
}

// Send публикует код для доставки на телефон. После исчерпания повторов
// возвращает apperr.ErrDeliveryFailed.
func (s *Sender) Send(ctx context.Context, phoneNumber, templateID, code string) error {
	const op = "sms.Send"

	msg := Message{Phone: phoneNumber, TemplateID: templateID, Code: code}
	var lastErr error
	for attempt := range s.retries {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = librabbit.PublishMessage(s.channel, rabbitmq.Exchange, rabbitmq.RoutingKeySms, msg)
		if lastErr == nil {
			return nil
		}
		s.log.Warn("sms publish failed",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			sl.Err(lastErr))
		time.Sleep(s.backoff * time.Duration(attempt+1))
	}
	s.log.Error("sms delivery failed after retries", slog.String("op", op), sl.Err(lastErr))
	return apperr.ErrDeliveryFailed
}
