// Package revokeall реализует HTTP-обработчик отзыва всех сессий пользователя,
// кроме текущей.
package revokeall

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

// Service описывает интерфейс массового отзыва сессий.
type Service interface {
	RevokeAll(ctx context.Context, userUID, exceptSessionUID string) error
}

// Handler управляет HTTP-запросами на массовый отзыв сессий.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отозвать все сессии, кроме текущей
// @Tags Sessions
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Сессии отозваны"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /sessions/revoke_all [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.revokeall"
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
	currentUID, _ := r.Context().Value(middlewarectx.SessionUID).(string)

	if err := h.service.RevokeAll(r.Context(), userUID, currentUID); err != nil {
		log.Error("failed to revoke sessions", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("all other sessions revoked", slog.String("kept_session_id", currentUID))
	render.JSON(w, r, response.OK())
}
