// Package revoke реализует HTTP-обработчик отзыва одной сессии по её ID.
package revoke

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

// Service описывает интерфейс отзыва собственной сессии.
type Service interface {
	RevokeOwned(ctx context.Context, userUID, sessionUID string) error
}

// Handler управляет HTTP-запросами на отзыв сессии.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отозвать сессию по ID
// @Description Отзывает указанную сессию пользователя, в том числе текущую. Чужая сессия выглядит как несуществующая.
// @Tags Sessions
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор сессии"
// @Success 200 {object} response.Response "Сессия отозвана"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /sessions/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.revoke"
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

	sessionUID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(sessionUID); err != nil {
		log.Error("failed to decode session id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid session id"))
		return
	}

	if err := h.service.RevokeOwned(r.Context(), userUID, sessionUID); err != nil {
		log.Error("failed to revoke session", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("session revoked", slog.String("session_id", sessionUID))
	render.JSON(w, r, response.OK())
}
