// Package login реализует HTTP-обработчик входа по телефону и паролю.
package login

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
	"github.com/magabrotheeeer/phone-auth/internal/models"
	sessionservice "github.com/magabrotheeeer/phone-auth/internal/services/session"
)

// Request тело запроса на вход.
type Request struct {
	Phone    string        `json:"phone" validate:"required"`
	Password string        `json:"password" validate:"required"`
	Device   models.Device `json:"device" validate:"required"`
}

// Service описывает интерфейс бизнес-логики входа.
type Service interface {
	Login(ctx context.Context, rawPhone, rawPassword string,
		device models.Device, ip string) (*sessionservice.TokenPair, error)
}

// Handler управляет HTTP-запросами на вход.
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
// @Summary Войти по телефону и паролю
// @Description Аутентифицирует пользователя и возвращает пару токенов. Вход снимает деактивацию и отменяет запрос на удаление внутри льготного периода.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Телефон, пароль и устройство"
// @Success 200 {object} map[string]any "Пара токенов и данные сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверный телефон или пароль, либо учётная запись заблокирована"
// @Failure 403 {object} response.ErrorResponse "Учётная запись приостановлена"
// @Failure 429 {object} response.ErrorResponse "Превышен лимит попыток входа"
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"
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

	pair, err := h.service.Login(r.Context(), req.Phone, req.Password, req.Device, middlewarectx.ClientIP(r))
	if err != nil {
		log.Error("failed to login", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user logged in", slog.String("session_id", pair.Session.UID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"session_id":    pair.Session.UID,
		"expires_at":    pair.Session.ExpiresAt.Format(time.RFC3339),
	}))
}
