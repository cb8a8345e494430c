// Package apperr содержит доменные ошибки сервиса аутентификации.
// Обработчики сопоставляют их с HTTP-статусами через errors.Is и errors.As,
// не раскрывая клиенту, какой именно фактор проверки не прошёл.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials возвращается при неверном телефоне или пароле.
	// Намеренно не различает "нет такого пользователя" и "неверный пароль".
	ErrInvalidCredentials = errors.New("invalid phone or password")

	// ErrAccountSuspended возвращается при попытке входа в заблокированную учётную запись.
	ErrAccountSuspended = errors.New("account is suspended")

	// ErrAccountLocked возвращается после серии неудачных попыток входа.
	ErrAccountLocked = errors.New("too many failed login attempts")

	// ErrPhoneTaken возвращается при попытке занять уже зарегистрированный телефон.
	ErrPhoneTaken = errors.New("phone number already registered")

	// ErrUserNotFound возвращается хранилищем, если пользователь не существует.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound возвращается при обращении к несуществующей сессии.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired возвращается при обращении к истёкшей сессии.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked возвращается при обращении к отозванной сессии,
	// в том числе при повторе уже использованного refresh-токена.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrOtpRejected возвращается при неверном, истёкшем или уже потреблённом коде.
	ErrOtpRejected = errors.New("invalid or expired code")

	// ErrOtpExhausted возвращается, когда лимит попыток проверки кода исчерпан.
	ErrOtpExhausted = errors.New("verification attempts exhausted")

	// ErrInvalidToken возвращается при невалидном или истёкшем JWT.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrDeliveryFailed возвращается после исчерпания попыток доставки кода.
	ErrDeliveryFailed = errors.New("code delivery failed")

	// ErrForbidden возвращается при недостатке прав на операцию.
	ErrForbidden = errors.New("forbidden")
)

// RateLimitError сообщает о превышении лимита запросов и несёт подсказку,
// через сколько можно повторить запрос.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// OtpAttemptsError сообщает о неверном коде и числе оставшихся попыток.
type OtpAttemptsError struct {
	Remaining int
}

func (e *OtpAttemptsError) Error() string {
	return fmt.Sprintf("invalid code, %d attempts remaining", e.Remaining)
}

func (e *OtpAttemptsError) Unwrap() error { return ErrOtpRejected }
