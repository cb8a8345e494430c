// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате, а также
// переводит доменные ошибки в HTTP‑статусы.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/phone-auth/internal/lib/apperr"
	"github.com/magabrotheeeer/phone-auth/internal/lib/password"
	"github.com/magabrotheeeer/phone-auth/internal/lib/phone"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OK возвращает успешный Response без данных.
func OK() Response {
	return Response{Status: StatusOK}
}

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "numeric":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too short", err.Field()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too long", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// RenderError переводит доменную ошибку в HTTP‑статус и пишет JSON‑ответ.
// Для превышения лимита дополнительно выставляется заголовок Retry-After.
// Неизвестные ошибки отдаются как 500 без деталей.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	var rlErr *apperr.RateLimitError
	if errors.As(err, &rlErr) {
		seconds := int(rlErr.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		w.WriteHeader(http.StatusTooManyRequests)
		render.JSON(w, r, Response{
			Status: StatusError,
			Error:  "too many requests",
			Data:   map[string]any{"retry_after_seconds": seconds},
		})
		return
	}

	var attemptsErr *apperr.OtpAttemptsError
	if errors.As(err, &attemptsErr) {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, Response{
			Status: StatusError,
			Error:  "incorrect code",
			Data:   map[string]any{"attempts_remaining": attemptsErr.Remaining},
		})
		return
	}

	var policyErr *password.PolicyError
	if errors.As(err, &policyErr) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, Response{
			Status: StatusError,
			Error:  "password does not meet the policy",
			Data:   map[string]any{"violations": policyErr.Violations},
		})
		return
	}

	status, msg := classify(err)
	w.WriteHeader(status)
	render.JSON(w, r, Error(msg))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return http.StatusUnauthorized, "incorrect phone or password"
	case errors.Is(err, apperr.ErrAccountLocked):
		return http.StatusUnauthorized, "account is temporarily locked"
	case errors.Is(err, apperr.ErrAccountSuspended):
		return http.StatusForbidden, "account is suspended"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrPhoneTaken):
		return http.StatusConflict, "phone number is already registered"
	case errors.Is(err, apperr.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, apperr.ErrSessionNotFound),
		errors.Is(err, apperr.ErrSessionExpired),
		errors.Is(err, apperr.ErrSessionRevoked),
		errors.Is(err, apperr.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid or expired token"
	case errors.Is(err, apperr.ErrOtpExhausted):
		return http.StatusUnauthorized, "code is no longer usable"
	case errors.Is(err, apperr.ErrOtpRejected):
		return http.StatusUnauthorized, "incorrect code"
	case errors.Is(err, apperr.ErrDeliveryFailed):
		return http.StatusBadGateway, "failed to deliver the code"
	case errors.Is(err, phone.ErrInvalidFormat):
		return http.StatusUnprocessableEntity, "invalid phone number"
	case errors.Is(err, phone.ErrUnsupportedRegion):
		return http.StatusUnprocessableEntity, "unsupported phone region"
	case errors.Is(err, phone.ErrNotMobile):
		return http.StatusUnprocessableEntity, "phone number is not mobile"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
