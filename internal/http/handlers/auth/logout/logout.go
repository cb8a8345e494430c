// Package logout реализует HTTP-обработчик завершения текущей сессии.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/phone-auth/internal/http/middlewarectx"
	"github.com/magabrotheeeer/phone-auth/internal/http/response"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
)

// Service описывает интерфейс отзыва сессии.
type Service interface {
	Revoke(ctx context.Context, sessionUID string) error
}

// Handler управляет HTTP-запросами на выход.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Завершить текущую сессию
// @Description Отзывает сессию предъявленного access-токена. Повторный выход — не ошибка.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Сессия завершена"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sessionUID, ok := r.Context().Value(middlewarectx.SessionUID).(string)
	if !ok || sessionUID == "" {
		log.Error("session uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Revoke(r.Context(), sessionUID); err != nil {
		log.Error("failed to revoke session", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("session revoked", slog.String("session_id", sessionUID))
	render.JSON(w, r, response.OK())
}
