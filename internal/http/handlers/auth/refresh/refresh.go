// Package refresh реализует HTTP-обработчик ротации refresh-токена.
package refresh

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/phone-auth/internal/http/response"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
	sessionservice "github.com/magabrotheeeer/phone-auth/internal/services/session"
)

// Request тело запроса на обновление пары токенов.
type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Service описывает интерфейс бизнес-логики ротации токенов.
type Service interface {
	Refresh(ctx context.Context, refreshToken string) (*sessionservice.TokenPair, error)
}

// Handler управляет HTTP-запросами на обновление пары токенов.
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
// @Summary Обновить пару токенов
// @Description Проверяет refresh-токен, ротирует его и возвращает новую пару. Повтор старого токена после ротации отклоняется.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Действующий refresh-токен"
// @Success 200 {object} map[string]any "Новая пара токенов"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Токен недействителен, сессия истекла или отозвана"
// @Router /refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.refresh"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		log.Error("failed to refresh tokens", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("tokens rotated", slog.String("session_id", pair.Session.UID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"session_id":    pair.Session.UID,
		"expires_at":    pair.Session.ExpiresAt.Format(time.RFC3339),
	}))
}
