// Package ratelimit реализует ограничение частоты запросов поверх внешнего
// хранилища счётчиков. Поддерживаются два алгоритма: счётчик с фиксированным
// окном для большинства конечных точек и скользящее окно для особо
// чувствительных действий.
//
// Ключи составляются вызывающей стороной, обычно в виде "action:identifier",
// где идентификатором служит IP, телефон или UID пользователя.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
)

// CounterStore описывает операции над внешним хранилищем счётчиков.
type CounterStore interface {
	IncrWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	CountInWindow(ctx context.Context, key, member string, now time.Time, window time.Duration) (int64, error)
	OldestInWindow(ctx context.Context, key string) (time.Time, error)
}

// Limiter проверяет лимиты по счётчикам во внешнем хранилище.
// При недоступности хранилища поведение задаётся failOpen:
// true — запрос пропускается, false — отклоняется с окном в качестве
// подсказки retry-after. Сервис никогда не блокируется на отказе хранилища.
type Limiter struct {
	store    CounterStore
	log      *slog.Logger
	failOpen bool
}

// New создаёт Limiter.
func New(store CounterStore, log *slog.Logger, failOpen bool) *Limiter {
	return &Limiter{store: store, log: log, failOpen: failOpen}
}

// CheckFixed проверяет лимит по счётчику с фиксированным окном.
// Возвращает nil, если запрос разрешён, иначе *apperr.RateLimitError.
func (l *Limiter) CheckFixed(ctx context.Context, key string, limit int, window time.Duration) error {
	const op = "ratelimit.CheckFixed"

	count, ttl, err := l.store.IncrWithTTL(ctx, "ratelimit:fixed:"+key, window)
	if err != nil {
		return l.degrade(op, key, window, err)
	}
	if count > int64(limit) {
		if ttl <= 0 {
			ttl = window
		}
		return &apperr.RateLimitError{RetryAfter: ttl}
	}
	return nil
}

// CheckSliding проверяет лимит по скользящему окну.
// Возвращает nil, если запрос разрешён, иначе *apperr.RateLimitError
// с подсказкой, когда самая старая отметка покинет окно.
func (l *Limiter) CheckSliding(ctx context.Context, key string, limit int, window time.Duration) error {
	const op = "ratelimit.CheckSliding"

	now := time.Now()
	redisKey := "ratelimit:sliding:" + key
	count, err := l.store.CountInWindow(ctx, redisKey, uuid.NewString(), now, window)
	if err != nil {
		return l.degrade(op, key, window, err)
	}
	if count > int64(limit) {
		retryAfter := window
		if oldest, err := l.store.OldestInWindow(ctx, redisKey); err == nil && !oldest.IsZero() {
			if until := oldest.Add(window).Sub(now); until > 0 {
				retryAfter = until
			}
		}
		return &apperr.RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}

func (l *Limiter) degrade(op, key string, window time.Duration, err error) error {
	l.log.Error("counter store unavailable",
		slog.String("op", op), slog.String("key", key), sl.Err(err))
	if l.failOpen {
		return nil
	}
	return &apperr.RateLimitError{RetryAfter: window}
}

// LoginKey составляет ключ лимита попыток входа по телефону и IP.
func LoginKey(phone, ip string) string {
	return fmt.Sprintf("login:%s:%s", phone, ip)
}

// OtpPhoneKey составляет ключ лимита выдачи кодов по телефону и назначению.
func OtpPhoneKey(phone, purpose string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, phone)
}

// OtpIPKey составляет ключ лимита выдачи кодов по IP.
func OtpIPKey(ip string) string {
	return fmt.Sprintf("otp:ip:%s", ip)
}
