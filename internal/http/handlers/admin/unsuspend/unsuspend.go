// Package unsuspend реализует административный HTTP-обработчик досрочного
// снятия блокировки.
package unsuspend

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/phone-auth/internal/http/middlewarectx"
	"github.com/magabrotheeeer/phone-auth/internal/http/response"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
)

// Service описывает интерфейс бизнес-логики снятия блокировки.
type Service interface {
	Unsuspend(ctx context.Context, actorUID, targetUID, ip string) error
}

// Handler управляет административными запросами на снятие блокировки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Снять блокировку с пользователя
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param uid path string true "Идентификатор пользователя"
// @Success 200 {object} response.Response "Блокировка снята"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав или пользователь не заблокирован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/users/{uid}/unsuspend [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.unsuspend"
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

	if err := h.service.Unsuspend(r.Context(), actorUID, targetUID, middlewarectx.ClientIP(r)); err != nil {
		log.Error("failed to unsuspend user", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user unsuspended", slog.String("user_uid", targetUID))
	render.JSON(w, r, response.OK())
}
