// Package suspend реализует административный HTTP-обработчик блокировки
// учётной записи до указанного момента.
package suspend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/phone-auth/internal/http/middlewarectx"
	"github.com/magabrotheeeer/phone-auth/internal/http/response"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
)

// Request тело запроса на блокировку.
type Request struct {
	Until time.Time `json:"until" validate:"required"`
}

// Service описывает интерфейс бизнес-логики блокировки.
type Service interface {
	Suspend(ctx context.Context, actorUID, targetUID string, until time.Time, ip string) error
}

// Handler управляет административными запросами на блокировку.
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
// @Summary Заблокировать пользователя
// @Description Переводит учётную запись в suspended до указанного момента и отзывает все её сессии.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param uid path string true "Идентификатор пользователя"
// @Param request body Request true "Срок окончания блокировки"
// @Success 200 {object} response.Response "Пользователь заблокирован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав или срок в прошлом"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/users/{uid}/suspend [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.suspend"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actorUID, _ := r.Context().Value(middlewarectx.UserUID).(string)

	targetUID := chi.URLParam(r, "uid")
	if _, err := uuid.Parse(targetUID); err != nil {
		log.Error("failed to decode user uid from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user uid"))
		return
	}

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

	if err := h.service.Suspend(r.Context(), actorUID, targetUID, req.Until, middlewarectx.ClientIP(r)); err != nil {
		log.Error("failed to suspend user", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user suspended",
		slog.String("user_uid", targetUID),
		slog.Time("until", req.Until))
	render.JSON(w, r, response.OK())
}
