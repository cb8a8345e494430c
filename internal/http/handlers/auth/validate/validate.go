// Package validate реализует HTTP-обработчик интроспекции сессии.
// Соседние сервисы проверяют через него, что предъявленный access-токен
// принадлежит действующей, не отозванной сессии.
package validate

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

// Service описывает интерфейс проверки сессии по хранилищу.
type Service interface {
	Validate(ctx context.Context, sessionUID string) (*models.Session, error)
}

// Handler управляет HTTP-запросами на интроспекцию сессии.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Проверить действительность сессии
// @Description Сверяет сессию access-токена с хранилищем: подпись токена недостаточна, отозванная сессия отклоняется.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Идентификаторы пользователя и сессии"
// @Failure 401 {object} response.ErrorResponse "Токен недействителен либо сессия отозвана или истекла"
// @Router /auth/validate [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.validate"
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
	role, _ := r.Context().Value(middlewarectx.Role).(string)

	session, err := h.service.Validate(r.Context(), sessionUID)
	if err != nil {
		log.Error("session validation failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_uid":    session.UserUID,
		"session_uid": session.UID,
		"role":        role,
		"expires_at":  session.ExpiresAt.Format(time.RFC3339),
	}))
}
