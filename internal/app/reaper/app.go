// Package reaper собирает фоновый сервис очистки: подключение к базе,
// журнал аудита и периодический обход просроченных записей.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/phone-auth/internal/audit"
	"github.com/magabrotheeeer/phone-auth/internal/config"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
	"github.com/magabrotheeeer/phone-auth/internal/rabbitmq"
	reaperservice "github.com/magabrotheeeer/phone-auth/internal/services/reaper"
	"github.com/magabrotheeeer/phone-auth/internal/storage"
	"github.com/magabrotheeeer/phone-auth/internal/storage/repository"
)

// App инкапсулирует фоновый сервис очистки.
type App struct {
	service *reaperservice.Service
	logger  *slog.Logger
	db      *storage.Storage
}

// New собирает зависимости сервиса очистки. Недоступность RabbitMQ не
// блокирует запуск: очистка идёт без журнала аудита.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}

	var auditor audit.Emitter = audit.NopEmitter{}
	rabbitConn, err := rabbitmq.Connect(cfg.RabbitConnectionString, 3, 2*time.Second)
	if err != nil {
		logger.Warn("rabbitmq unavailable, audit events will be dropped", sl.Err(err))
	} else {
		channel, err := rabbitmq.SetupChannel(rabbitConn, rabbitmq.DefaultQueues)
		if err != nil {
			logger.Warn("rabbitmq channel setup failed, audit events will be dropped", sl.Err(err))
		} else {
			auditor = audit.NewRabbitEmitter(channel, logger)
		}
	}

	repo := repository.New(db.DB)
	service := reaperservice.New(repo, auditor, logger, cfg.Reaper, cfg.Lifecycle, cfg.OTP)

	return &App{
		service: service,
		logger:  logger,
		db:      db,
	}, nil
}

// Run запускает периодическую очистку до отмены контекста.
func (a *App) Run(ctx context.Context) {
	a.logger.Info("reaper starting")
	a.service.Run(ctx)
	_ = a.db.DB.Close()
	a.logger.Info("reaper stopped")
}
