// Package deactivate реализует HTTP-обработчик деактивации учётной записи.
// Деактивация обратима: следующий успешный вход возвращает запись в active.
package deactivate

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

// Request тело запроса на деактивацию.
type Request struct {
	Password string `json:"password" validate:"required"`
}

// Service описывает интерфейс бизнес-логики деактивации.
type Service interface {
	Deactivate(ctx context.Context, userUID, sessionUID, currentPassword, ip string) error
}

// Handler управляет HTTP-запросами на деактивацию.
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
// @Summary Деактивировать учётную запись
// @Description Переводит учётную запись в deactivated и отзывает все сессии. Вход возвращает её в active.
// @Tags Account
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Пароль для подтверждения"
// @Success 200 {object} response.Response "Учётная запись деактивирована"
// @Failure 401 {object} response.ErrorResponse "Неверный пароль"
// @Router /account/deactivate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.deactivate"
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

	if err := h.service.Deactivate(r.Context(), userUID, sessionUID, req.Password, middlewarectx.ClientIP(r)); err != nil {
		log.Error("failed to deactivate account", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("account deactivated", slog.String("user_uid", userUID))
	render.JSON(w, r, response.OK())
}
