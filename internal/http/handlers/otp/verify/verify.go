// Package verify реализует HTTP-обработчик проверки одноразового кода.
package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/phone-auth/internal/http/response"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
	"github.com/magabrotheeeer/phone-auth/internal/models"
)

// Request тело запроса на проверку кода.
type Request struct {
	VerificationID string `json:"verification_id" validate:"required,uuid"`
	Code           string `json:"code" validate:"required,numeric"`
	Phone          string `json:"phone" validate:"required"`
}

// Service описывает интерфейс бизнес-логики проверки кода.
type Service interface {
	Verify(ctx context.Context, verificationUID, code, phoneNumber string) (*models.OtpRecord, error)
}

// Normalizer приводит телефон к каноническому виду.
type Normalizer interface {
	Normalize(raw string) (string, error)
}

// Handler управляет HTTP-запросами на проверку одноразовых кодов.
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
// @Summary Проверить одноразовый код
// @Description Потребляет код по идентификатору верификации. Успешная проверка одноразова.
// @Tags Otp
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор верификации, код и телефон"
// @Success 200 {object} map[string]any "Назначение подтверждённого кода"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Код отклонён"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /otp/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.otp.verify"
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

	record, err := h.service.Verify(r.Context(), req.VerificationID, req.Code, canonical)
	if err != nil {
		log.Error("failed to verify otp", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("otp verified", slog.String("verification_id", record.UID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"verification_id": record.UID,
		"purpose":         record.Purpose,
	}))
}
