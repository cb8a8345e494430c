// Package reaper реализует фоновую очистку: необратимое удаление учётных
// записей после льготного периода, снятие истёкших блокировок и удаление
// отработанных одноразовых кодов.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/phone-auth/internal/audit"
	"github.com/magabrotheeeer/phone-auth/internal/config"
	"github.com/magabrotheeeer/phone-auth/internal/lib/sl"
	"github.com/magabrotheeeer/phone-auth/internal/metrics"
	"github.com/magabrotheeeer/phone-auth/internal/models"
)

// Repository описывает операции хранилища, выполняемые очисткой.
type Repository interface {
	FindDeletionsDue(ctx context.Context, grace time.Duration) ([]string, error)
	DeleteUser(ctx context.Context, userUID string) error
	LiftExpiredSuspensions(ctx context.Context) (int64, error)
	PurgeOtps(ctx context.Context, verifiedRetention time.Duration) (int64, error)
}

// Service периодически выполняет проходы очистки.
type Service struct {
	repo              Repository
	auditor           audit.Emitter
	log               *slog.Logger
	interval          time.Duration
	grace             time.Duration
	verifiedRetention time.Duration
}

// New создает новый экземпляр Service.
func New(repo Repository, auditor audit.Emitter, log *slog.Logger,
	reaperCfg config.Reaper, lifecycleCfg config.Lifecycle, otpCfg config.OTP) *Service {
	return &Service{
		repo:              repo,
		auditor:           auditor,
		log:               log,
		interval:          reaperCfg.Interval,
		grace:             lifecycleCfg.DeletionGracePeriod,
		verifiedRetention: otpCfg.VerifiedRetention,
	}
}

// Run выполняет проход сразу и далее по тикеру, пока контекст не отменён.
func (s *Service) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reaper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep выполняет один проход очистки. Отказы отдельных шагов логируются
// и не прерывают остальные: каждый шаг наверстает пропущенное в следующем
// проходе.
func (s *Service) Sweep(ctx context.Context) {
	const op = "reaper.Sweep"

	uids, err := s.repo.FindDeletionsDue(ctx, s.grace)
	if err != nil {
		s.log.Error("failed to find due deletions", slog.String("op", op), sl.Err(err))
	}
	for _, uid := range uids {
		if err := s.repo.DeleteUser(ctx, uid); err != nil {
			s.log.Error("failed to delete user",
				slog.String("op", op), slog.String("user_uid", uid), sl.Err(err))
			continue
		}
		metrics.LifecycleTransitions.WithLabelValues(models.StatusPendingDeletion + "_to_deleted").Inc()
		s.auditor.Emit(models.AuditEvent{
			Action:   "account.delete",
			Resource: uid,
			Before:   models.StatusPendingDeletion,
			After:    "deleted",
		})
		s.log.Info("user deleted after grace period",
			slog.String("op", op), slog.String("user_uid", uid))
	}

	lifted, err := s.repo.LiftExpiredSuspensions(ctx)
	if err != nil {
		s.log.Error("failed to lift expired suspensions", slog.String("op", op), sl.Err(err))
	} else if lifted > 0 {
		metrics.LifecycleTransitions.WithLabelValues(models.StatusSuspended + "_to_" + models.StatusActive).Add(float64(lifted))
		s.log.Info("lifted expired suspensions", slog.String("op", op), slog.Int64("count", lifted))
	}

	purged, err := s.repo.PurgeOtps(ctx, s.verifiedRetention)
	if err != nil {
		s.log.Error("failed to purge one-time codes", slog.String("op", op), sl.Err(err))
	} else if purged > 0 {
		s.log.Info("purged one-time codes", slog.String("op", op), slog.Int64("count", purged))
	}
}
