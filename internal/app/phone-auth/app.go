// Package phoneauth собирает HTTP-сервис аутентификации: хранилище,
// кэш лимитов, внешние очереди, бизнес-сервисы и маршруты.
package phoneauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/phone-auth/internal/audit"
	"github.com/magabrotheeeer/phone-auth/internal/cache"
	"github.com/magabrotheeeer/phone-auth/internal/config"
	"github.com/magabrotheeeer/phone-auth/internal/lib/jwt"
	"github.com/magabrotheeeer/phone-auth/internal/lib/password"
	"github.com/magabrotheeeer/phone-auth/internal/lib/phone"
	"github.com/magabrotheeeer/phone-auth/internal/migrations"
	"github.com/magabrotheeeer/phone-auth/internal/rabbitmq"
	"github.com/magabrotheeeer/phone-auth/internal/ratelimit"
	authservice "github.com/magabrotheeeer/phone-auth/internal/services/auth"
	lifecycleservice "github.com/magabrotheeeer/phone-auth/internal/services/lifecycle"
	otpservice "github.com/magabrotheeeer/phone-auth/internal/services/otp"
	sessionservice "github.com/magabrotheeeer/phone-auth/internal/services/session"
	"github.com/magabrotheeeer/phone-auth/internal/sms"
	"github.com/magabrotheeeer/phone-auth/internal/storage"
	"github.com/magabrotheeeer/phone-auth/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и внешние подключения сервиса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	rabbit *amqp.Connection
}

// New собирает все зависимости и возвращает готовое к запуску приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	rabbitConn, err := rabbitmq.Connect(cfg.RabbitConnectionString, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}
	channel, err := rabbitmq.SetupChannel(rabbitConn, rabbitmq.DefaultQueues)
	if err != nil {
		return nil, err
	}

	repo := repository.New(db.DB)
	limiter := ratelimit.New(cacheRedis, logger, cfg.RateLimits.FailOpen)
	sender := sms.NewSender(channel, logger, cfg.OTP.DeliveryRetries, cfg.OTP.DeliveryBackoff)
	auditor := audit.NewRabbitEmitter(channel, logger)
	jwtMaker := jwt.NewMaker(cfg.JWTToken)
	policy := password.NewPolicy(cfg.PasswordPolicy)
	hasher := password.NewHasher(cfg.BcryptCost)
	normalizer := phone.NewNormalizer(cfg.Phone)

	otpSvc := otpservice.New(repo, limiter, sender, logger, cfg.OTP, cfg.RateLimits)
	sessionSvc := sessionservice.New(repo, jwtMaker, logger, cfg.Sessions)
	authSvc := authservice.New(repo, otpSvc, sessionSvc, limiter,
		policy, hasher, normalizer, auditor, logger,
		cfg.RateLimits, cfg.Sessions, cfg.Lifecycle)
	lifecycleSvc := lifecycleservice.New(repo, otpSvc, policy, hasher,
		normalizer, auditor, logger, cfg.Lifecycle)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, jwtMaker, db, normalizer,
		otpSvc, authSvc, sessionSvc, lifecycleSvc)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		rabbit: rabbitConn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.rabbit.Close()
		_ = a.cache.Db.Close()
		_ = a.db.DB.Close()
		return err
	}
}
