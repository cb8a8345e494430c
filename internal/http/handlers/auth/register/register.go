// Package register реализует HTTP-обработчик регистрации пользователя.
//
// Handler принимает телефон, пароль и подтверждающий одноразовый код,
// создаёт учётную запись через сервис и возвращает пару токенов
// вместе с данными первой сессии.
package register

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

// Request тело запроса на регистрацию.
type Request struct {
	Phone          string        `json:"phone" validate:"required"`
	Password       string        `json:"password" validate:"required"`
	VerificationID string        `json:"verification_id" validate:"required,uuid"`
	Code           string        `json:"code" validate:"required,numeric"`
	Device         models.Device `json:"device" validate:"required"`
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, rawPhone, rawPassword, verificationUID, code string,
		device models.Device, ip string) (*sessionservice.TokenPair, error)
}

// Handler управляет HTTP-запросами на регистрацию.
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
// @Summary Зарегистрировать пользователя
// @Description Создаёт учётную запись по подтверждённому кодом телефону и возвращает пару токенов.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Телефон, пароль, подтверждающий код и устройство"
// @Success 200 {object} map[string]any "Пара токенов и данные сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Код отклонён"
// @Failure 409 {object} response.ErrorResponse "Телефон уже зарегистрирован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации, политики пароля или номера"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
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

	pair, err := h.service.Register(r.Context(), req.Phone, req.Password,
		req.VerificationID, req.Code, req.Device, middlewarectx.ClientIP(r))
	if err != nil {
		log.Error("failed to register user", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user registered", slog.String("session_id", pair.Session.UID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"session_id":    pair.Session.UID,
		"expires_at":    pair.Session.ExpiresAt.Format(time.RFC3339),
	}))
}
