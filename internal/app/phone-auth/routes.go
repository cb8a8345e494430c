// Package phoneauth предоставляет маршруты сервиса аутентификации.
package phoneauth

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/account/changepassword"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/account/changephone"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/account/deactivate"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/account/removeaccount"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/admin/suspend"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/admin/unsuspend"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/auth/refresh"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/auth/validate"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/health"
	otprequest "github.com/magabrotheeeer/phone-auth/internal/http/handlers/otp/request"
	otpverify "github.com/magabrotheeeer/phone-auth/internal/http/handlers/otp/verify"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/session/list"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/session/revoke"
	"github.com/magabrotheeeer/phone-auth/internal/http/handlers/session/revokeall"
	"github.com/magabrotheeeer/phone-auth/internal/http/middlewarectx"
	"github.com/magabrotheeeer/phone-auth/internal/lib/jwt"
	"github.com/magabrotheeeer/phone-auth/internal/lib/phone"
	authservice "github.com/magabrotheeeer/phone-auth/internal/services/auth"
	lifecycleservice "github.com/magabrotheeeer/phone-auth/internal/services/lifecycle"
	otpservice "github.com/magabrotheeeer/phone-auth/internal/services/otp"
	sessionservice "github.com/magabrotheeeer/phone-auth/internal/services/session"
	"github.com/magabrotheeeer/phone-auth/internal/storage"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, jwtMaker jwt.Maker,
	db *storage.Storage, normalizer *phone.Normalizer,
	otpSvc *otpservice.Service, authSvc *authservice.Service,
	sessionSvc *sessionservice.Service, lifecycleSvc *lifecycleservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/otp/request", otprequest.New(logger, otpSvc, normalizer).ServeHTTP)
		r.Post("/otp/verify", otpverify.New(logger, otpSvc, normalizer).ServeHTTP)
		r.Post("/register", register.New(logger, authSvc).ServeHTTP)
		r.Post("/login", login.New(logger, authSvc).ServeHTTP)
		r.Post("/refresh", refresh.New(logger, sessionSvc).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, rate.Limit(50), 100))
			r.Post("/logout", logout.New(logger, sessionSvc).ServeHTTP)
			r.Get("/auth/validate", validate.New(logger, sessionSvc).ServeHTTP)
			r.Get("/sessions", list.New(logger, sessionSvc).ServeHTTP)
			r.Delete("/sessions/{id}", revoke.New(logger, sessionSvc).ServeHTTP)
			r.Post("/sessions/revoke_all", revokeall.New(logger, sessionSvc).ServeHTTP)
			r.Post("/account/password", changepassword.New(logger, lifecycleSvc).ServeHTTP)
			r.Post("/account/phone", changephone.New(logger, lifecycleSvc).ServeHTTP)
			r.Post("/account/deactivate", deactivate.New(logger, lifecycleSvc).ServeHTTP)
			r.Post("/account/delete", removeaccount.New(logger, lifecycleSvc).ServeHTTP)

			// Административные операции
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminMiddleware(logger))
				r.Post("/admin/users/{uid}/suspend", suspend.New(logger, lifecycleSvc).ServeHTTP)
				r.Post("/admin/users/{uid}/unsuspend", unsuspend.New(logger, lifecycleSvc).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
