// Package list реализует HTTP-обработчик списка действующих сессий пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/phone-auth/internal/http/middlewarectx"
	"github.com/magabrotheeeer/phone-auth/internal/http/response"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
	"github.com/magabrotheeeer/phone-auth/internal/models"
)

// Service описывает интерфейс получения действующих сессий.
type Service interface {
	ListActive(ctx context.Context, userUID string) ([]*models.Session, error)
}

// Handler управляет HTTP-запросами на список сессий.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// sessionView публичное представление сессии. Refresh-токен наружу не отдаётся.
type sessionView struct {
	ID         string `json:"id"`
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
	DeviceName string `json:"device_name,omitempty"`
	IP         string `json:"ip"`
	CreatedAt  string `json:"created_at"`
	ExpiresAt  string `json:"expires_at"`
	Current    bool   `json:"current"`
}

// ServeHTTP godoc
// @Summary Список действующих сессий
// @Description Возвращает действующие сессии пользователя, новые первыми. Текущая сессия помечена.
// @Tags Sessions
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список сессий"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /sessions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.list"
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

	sessions, err := h.service.ListActive(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list sessions", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:         s.UID,
			DeviceID:   s.DeviceID,
			DeviceType: s.DeviceType,
			DeviceName: s.DeviceName,
			IP:         s.IP,
			CreatedAt:  s.CreatedAt.Format(time.RFC3339),
			ExpiresAt:  s.ExpiresAt.Format(time.RFC3339),
			Current:    s.UID == currentUID,
		})
	}

	log.Info("sessions listed", slog.Int("count", len(views)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"sessions": views,
	}))
}
