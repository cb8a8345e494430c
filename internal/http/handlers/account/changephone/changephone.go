// Package changephone реализует HTTP-обработчик смены телефона.
//
// Владение новым номером подтверждается одноразовым кодом, выданным на него,
// операция дополнительно подтверждается паролем.
package changephone

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/phone-auth/internal/http/middlewarectx"
	"github.com/magabrotheeeer/phone-auth/internal/http/response"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
)

// Request тело запроса на смену телефона.
type Request struct {
	Password       string `json:"password" validate:"required"`
	NewPhone       string `json:"new_phone" validate:"required"`
	VerificationID string `json:"verification_id" validate:"required,uuid"`
	Code           string `json:"code" validate:"required,numeric"`
}

// Service описывает интерфейс бизнес-логики смены телефона.
type Service interface {
	ChangePhone(ctx context.Context, userUID, sessionUID, currentPassword, rawNewPhone, verificationUID, code, ip string) (string, error)
}

// Handler управляет HTTP-запросами на смену телефона.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сменить телефон
// @Description Меняет телефон после проверки пароля и кода, выданного на новый номер. Остальные сессии отзываются.
// @Tags Account
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Пароль, новый телефон и подтверждающий код"
// @Success 200 {object} map[string]any "Канонический новый номер"
// @Failure 401 {object} response.ErrorResponse "Неверный пароль или код"
// @Failure 409 {object} response.ErrorResponse "Номер уже занят"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или номера"
// @Router /account/phone [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.changephone"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	sessionUID, _ := r.Context().Value(middlewarectx.SessionUID).(string)

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

	canonical, err := h.service.ChangePhone(r.Context(), userUID, sessionUID,
		req.Password, req.NewPhone, req.VerificationID, req.Code, middlewarectx.ClientIP(r))
	if err != nil {
		log.Error("failed to change phone", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("phone changed", slog.String("user_uid", userUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"phone": canonical,
	}))
}
