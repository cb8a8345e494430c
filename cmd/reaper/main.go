// Package main запускает фоновую очистку: удаление учётных записей с
// истёкшим льготным периодом, снятие просроченных блокировок и чистку кодов.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/phone-auth/internal/app/reaper"
	"github.com/magabrotheeeer/phone-auth/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting reaper", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := reaper.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize reaper", slog.Any("err", err))
		os.Exit(1)
	}

	app.Run(ctx)
}
