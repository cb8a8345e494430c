// Package request реализует HTTP-обработчик выпуска одноразового кода.
//
// Handler принимает телефон и назначение кода, нормализует номер,
// выпускает код через сервис и возвращает идентификатор верификации
// со сроком действия. Сам код в ответ не попадает — он уходит по SMS.
package request

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/phone-auth/internal/http/middlewarectx"
	"github.com/magabrotheeeer/phone-auth/internal/http/response"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
	otpservice "github.com/magabrotheeeer/phone-auth/internal/services/otp"
)

// Request тело запроса на выпуск кода.
type Request struct {
	Phone   string `json:"phone" validate:"required"`
	Purpose string `json:"purpose" validate:"required,oneof=registration login password_reset phone_change"`
}

// Service описывает интерфейс бизнес-логики выпуска кода.
type Service interface {
	Issue(ctx context.Context, phoneNumber, purpose, ip string, userUID *string) (*otpservice.Issued, error)
}

// Normalizer приводит телефон к каноническому виду.
type Normalizer interface {
	Normalize(raw string) (string, error)
}

// Handler управляет HTTP-запросами на выпуск одноразовых кодов.
type Handler struct {
	log        *slog.Logger
	service    Service
	normalizer Normalizer
	validate   *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service, normalizer Normalizer) *Handler {
	return &Handler{
		log:        log,
		service:    service,
		normalizer: normalizer,
		validate:   validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выпустить одноразовый код
// @Description Отправляет одноразовый код на указанный телефон и возвращает идентификатор верификации.
// @Tags Otp
// @Accept  json
// @Produce  json
// @Param request body Request true "Телефон и назначение кода"
// @Success 200 {object} map[string]any "Идентификатор верификации и срок действия"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или невалидный номер"
// @Failure 429 {object} response.ErrorResponse "Превышен лимит выпуска кодов"
// @Router /otp/request [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.otp.request"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	canonical, err := h.normalizer.Normalize(req.Phone)
	if err != nil {
		log.Error("failed to normalize phone", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	issued, err := h.service.Issue(r.Context(), canonical, req.Purpose, middlewarectx.ClientIP(r), nil)
	if err != nil {
		log.Error("failed to issue otp", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("otp issued", slog.String("verification_id", issued.VerificationUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"verification_id": issued.VerificationUID,
		"expires_at":      issued.ExpiresAt.Format(time.RFC3339),
	}))
}
