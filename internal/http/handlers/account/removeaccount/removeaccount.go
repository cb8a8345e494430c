// Package removeaccount реализует HTTP-обработчик запроса на удаление
// учётной записи. Удаление отложенное: до конца льготного периода вход
// отменяет запрос, после — данные необратимо удаляются фоновой очисткой.
package removeaccount

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
)

// Request тело запроса на удаление учётной записи.
type Request struct {
	Password string `json:"password" validate:"required"`
}

// Service описывает интерфейс бизнес-логики отложенного удаления.
type Service interface {
	RequestDeletion(ctx context.Context, userUID, sessionUID, currentPassword, ip string) (time.Time, error)
}

// Handler управляет HTTP-запросами на удаление учётной записи.
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
// @Summary Запросить удаление учётной записи
// @Description Переводит учётную запись в pending_deletion и отзывает все сессии. Возвращает момент необратимого удаления.
// @Tags Account
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Пароль для подтверждения"
// @Success 200 {object} map[string]any "Момент необратимого удаления"
// @Failure 401 {object} response.ErrorResponse "Неверный пароль"
// @Router /account/delete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.removeaccount"
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

	deleteAfter, err := h.service.RequestDeletion(r.Context(), userUID, sessionUID, req.Password, middlewarectx.ClientIP(r))
	if err != nil {
		log.Error("failed to request deletion", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("deletion requested", slog.String("user_uid", userUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"delete_after": deleteAfter.Format(time.RFC3339),
	}))
}
